package eventlog

import (
	"encoding/xml"
	"time"

	"github.com/lma1216/ketshash/pkg/types"
)

// Rendered-event XML structures.

type eventXML struct {
	XMLName   xml.Name     `xml:"Event"`
	System    systemXML    `xml:"System"`
	EventData eventDataXML `xml:"EventData"`
}

type systemXML struct {
	Provider    providerXML    `xml:"Provider"`
	EventID     uint32         `xml:"EventID"`
	TimeCreated timeCreatedXML `xml:"TimeCreated"`
	Computer    string         `xml:"Computer"`
	Channel     string         `xml:"Channel"`
}

type providerXML struct {
	Name string `xml:"Name,attr"`
	Guid string `xml:"Guid,attr"`
}

type timeCreatedXML struct {
	SystemTime string `xml:"SystemTime,attr"`
}

type eventDataXML struct {
	Data []dataXML `xml:"Data"`
}

type dataXML struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:",chardata"`
}

// ParseEventXML builds a Record from one rendered event.
func ParseEventXML(xmlStr, host string) (*types.Record, error) {
	var event eventXML
	if err := xml.Unmarshal([]byte(xmlStr), &event); err != nil {
		return nil, err
	}

	timestamp, _ := time.Parse(time.RFC3339Nano, event.System.TimeCreated.SystemTime)

	fields := make(map[string]string, len(event.EventData.Data))
	for _, d := range event.EventData.Data {
		if d.Name != "" {
			fields[d.Name] = d.Value
		}
	}

	return &types.Record{
		Host:     host,
		Channel:  event.System.Channel,
		Provider: event.System.Provider.Name,
		EventID:  event.System.EventID,
		Time:     timestamp,
		Fields:   fields,
	}, nil
}
