package timetables

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"

	"golang.org/x/net/html/charset"
)

type Format string

const (
	FormatXML  Format = "application/xml"
	FormatJSON Format = "application/json"
)

// validate checks that body is well formed in the requested format
func (f Format) validate(body []byte) error {
	switch f {
	case FormatJSON:
		if !json.Valid(body) {
			return errors.New("invalid JSON document")
		}
		return nil
	default:
		d := newXMLDecoder(bytes.NewReader(body))
		sawElement := false
		for {
			tok, err := d.Token()
			if err == io.EOF {
				break
			} else if err != nil {
				return err
			}

			if _, ok := tok.(xml.StartElement); ok {
				sawElement = true
			}
		}

		if !sawElement {
			return errors.New("XML document has no root element")
		}
		return nil
	}
}

func newXMLDecoder(reader io.Reader) *xml.Decoder {
	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel

	return d
}
