package gpx

import (
	"fmt"
	"io"
	"os"

	gpxgo "github.com/tkrajina/gpxgo/gpx"
)

// Encode renders doc as indented GPX 1.1.
func Encode(doc *gpxgo.GPX) ([]byte, error) {
	data, err := doc.ToXml(gpxgo.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return nil, fmt.Errorf("failed to encode GPX: %w", err)
	}
	return data, nil
}

// WriteTo writes doc to w.
func WriteTo(w io.Writer, doc *gpxgo.GPX) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Write saves doc to filename.
func Write(filename string, doc *gpxgo.GPX) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create GPX file: %w", err)
	}
	if err := WriteTo(f, doc); err != nil {
		f.Close()
		return fmt.Errorf("failed to write GPX file: %w", err)
	}
	return f.Close()
}

// Parse reads a GPX file back, typically an overview written earlier.
func Parse(filename string) (*gpxgo.GPX, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	doc, err := gpxgo.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GPX: %w", err)
	}
	return doc, nil
}
