// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package testutil builds case archives and schemas for tests.
package testutil

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// PartyXSD is a schema for party.xml: a party root with a required
// applicationno and optional applicant details.
const PartyXSD = `<?xml version="1.0" encoding="utf-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" elementFormDefault="qualified">
  <xs:simpleType name="applicationNoType">
    <xs:restriction base="xs:string">
      <xs:maxLength value="32"/>
    </xs:restriction>
  </xs:simpleType>
  <xs:element name="party">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="applicationno" type="applicationNoType"/>
        <xs:element name="name" type="xs:string" minOccurs="0"/>
        <xs:element name="lodged" type="xs:date" minOccurs="0"/>
        <xs:element name="document" type="xs:string" minOccurs="0" maxOccurs="unbounded"/>
      </xs:sequence>
      <xs:attribute name="version" type="xs:string"/>
    </xs:complexType>
  </xs:element>
</xs:schema>`

// PartyXML returns a party.xml body with the given application number.
func PartyXML(applicationNo string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<party version="1">
  <applicationno>%s</applicationno>
  <name>Jane Citizen</name>
  <lodged>2024-03-01</lodged>
</party>`, applicationNo)
}

// PartyXMLWithoutApplicationNo is a party.xml body that fails PartyXSD.
const PartyXMLWithoutApplicationNo = `<?xml version="1.0" encoding="utf-8"?>
<party>
  <name>Jane Citizen</name>
</party>`

// File is one archive entry.
type File struct {
	Name string
	Body string
}

// WriteZip writes files, in order, to dir/name and returns the path.
func WriteZip(t *testing.T, dir, name string, files ...File) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, file := range files {
		w, err := zw.Create(file.Name)
		require.NoError(t, err)
		_, err = w.Write([]byte(file.Body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return p
}

// WriteFile writes body to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

// ListDir returns the names in dir, or nil if it does not exist.
func ListDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
