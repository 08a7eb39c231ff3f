package ctdf

import (
	"fmt"
	"strings"
)

// Station is a stop known to the DB Timetables API. EVA is the identity key.
type Station struct {
	Name   string `groups:"basic" json:"name"`
	EVA    string `groups:"basic" json:"eva"`
	RIL100 string `groups:"basic" json:"ril100,omitempty"`
}

// NormaliseEVA left pads a numeric EVA number with zeros to 7 digits
func NormaliseEVA(eva string) string {
	eva = strings.TrimSpace(eva)
	if len(eva) >= 7 {
		return eva
	}

	return strings.Repeat("0", 7-len(eva)) + eva
}

func (s Station) String() string {
	if s.RIL100 == "" {
		return fmt.Sprintf("%s (EVA %s)", s.Name, s.EVA)
	}

	return fmt.Sprintf("%s (EVA %s, RIL100 %s)", s.Name, s.EVA, s.RIL100)
}
