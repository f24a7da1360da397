//go:build mage

package main

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const sampleSchema = `<?xml version="1.0" encoding="utf-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" elementFormDefault="qualified">
  <xs:element name="party">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="applicationno" type="xs:string"/>
        <xs:element name="name" type="xs:string" minOccurs="0"/>
        <xs:element name="lodged" type="xs:date" minOccurs="0"/>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
</xs:schema>
`

const sampleParty = `<?xml version="1.0" encoding="utf-8"?>
<party>
  <applicationno>12345</applicationno>
  <name>Jane Citizen</name>
  <lodged>2026-01-15</lodged>
</party>
`

// Sample writes schema/party.xsd (if missing) and drop/sample-case.zip so
// the CLI can be tried end to end.
func Sample() error {
	mg.Deps(Init)

	schemaPath := filepath.Join("schema", "party.xsd")
	if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
		if err := os.WriteFile(schemaPath, []byte(sampleSchema), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", schemaPath, err)
		}
		fmt.Println("  ", schemaPath)
	}

	zipPath := filepath.Join("drop", "sample-case.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", zipPath, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	files := []struct{ name, body string }{
		{"party.xml", sampleParty},
		{"documents/application.pdf", "%PDF-1.4 sample application"},
		{"documents/notes.txt", "not extracted with the default whitelist"},
	}
	for _, file := range files {
		w, err := zw.Create(file.name)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte(file.body)); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", zipPath, err)
	}
	fmt.Println("  ", zipPath)
	return nil
}
