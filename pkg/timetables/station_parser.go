package timetables

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"io"
	"strconv"

	"github.com/travigo/dblive/pkg/ctdf"
)

type stationElement struct {
	Name     string `xml:"name,attr"`
	NameLong string `xml:"nameLong,attr"`
	EVA      string `xml:"eva,attr"`
	EVANo    string `xml:"evaNo,attr"`
	ID       string `xml:"id,attr"`
	RIL100   string `xml:"ril100,attr"`
	DS100    string `xml:"ds100,attr"`
}

func (s *stationElement) toStation() (ctdf.Station, bool) {
	station := ctdf.Station{
		Name:   firstNonEmpty(s.Name, s.NameLong),
		EVA:    firstNonEmpty(s.EVA, s.EVANo, s.ID),
		RIL100: firstNonEmpty(s.RIL100, s.DS100),
	}

	return station, station.EVA != "" && station.Name != ""
}

// parseStationsXML reads the <station> elements of a /station response
func parseStationsXML(body []byte) ([]ctdf.Station, error) {
	stations := []ctdf.Station{}

	d := newXMLDecoder(bytes.NewReader(body))
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		if ty, ok := tok.(xml.StartElement); ok && ty.Name.Local == "station" {
			var element stationElement

			if err = d.DecodeElement(&element, &ty); err != nil {
				return nil, err
			}

			if station, ok := element.toStation(); ok {
				stations = append(stations, station)
			}
		}
	}

	return stations, nil
}

// parseStationsJSON accepts either a bare list of stations or an object wrapping
// the list under "result". Identifiers may be strings or numbers.
func parseStationsJSON(body []byte) ([]ctdf.Station, error) {
	items, err := decodeStationItems(body)
	if err != nil {
		return nil, err
	}

	stations := []ctdf.Station{}
	for _, item := range items {
		station := ctdf.Station{
			Name:   firstField(item, "name", "nameLong", "n"),
			EVA:    firstField(item, "evaNo", "eva", "id"),
			RIL100: firstField(item, "ril100", "ds100", "ril"),
		}

		if station.EVA == "" || station.Name == "" {
			continue
		}

		stations = append(stations, station)
	}

	return stations, nil
}

func decodeStationItems(body []byte) ([]map[string]any, error) {
	var items []map[string]any
	listErr := decodeJSON(body, &items)
	if listErr == nil {
		return items, nil
	}

	var wrapped struct {
		Result []map[string]any `json:"result"`
	}
	if err := decodeJSON(body, &wrapped); err != nil {
		return nil, listErr
	}

	return wrapped.Result, nil
}

func decodeJSON(body []byte, target any) error {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	return decoder.Decode(target)
}

func firstField(item map[string]any, keys ...string) string {
	for _, key := range keys {
		switch value := item[key].(type) {
		case string:
			if value != "" {
				return value
			}
		case json.Number:
			return value.String()
		case float64:
			return strconv.FormatFloat(value, 'f', -1, 64)
		}
	}

	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}
