package eventlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLogonXML = `<Event xmlns="http://schemas.microsoft.com/win/2004/08/events/event">
  <System>
    <Provider Name="Microsoft-Windows-Security-Auditing" Guid="{54849625-5478-4994-a5ba-3e3b0328c30d}"/>
    <EventID>4624</EventID>
    <TimeCreated SystemTime="2024-03-01T10:15:30.123456700Z"/>
    <Computer>SRV01.corp.local</Computer>
    <Channel>Security</Channel>
  </System>
  <EventData>
    <Data Name="SubjectUserSid">S-1-0-0</Data>
    <Data Name="TargetUserSid">S-1-5-21-1111111111-2222222222-3333333333-1001</Data>
    <Data Name="TargetUserName">jdoe</Data>
    <Data Name="TargetDomainName">CORP</Data>
    <Data Name="TargetLogonId">0x3e7f21</Data>
    <Data Name="LogonType">3</Data>
    <Data Name="AuthenticationPackageName">NTLM</Data>
    <Data Name="WorkstationName">WKS01</Data>
    <Data Name="IpAddress">10.0.0.5</Data>
  </EventData>
</Event>`

func TestParseEventXML(t *testing.T) {
	rec, err := ParseEventXML(sampleLogonXML, "SRV01")
	require.NoError(t, err)

	assert.Equal(t, "SRV01", rec.Host)
	assert.Equal(t, "Security", rec.Channel)
	assert.Equal(t, "Microsoft-Windows-Security-Auditing", rec.Provider)
	assert.Equal(t, uint32(4624), rec.EventID)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 15, 30, 123456700, time.UTC), rec.Time.UTC())
	assert.Equal(t, "3", rec.Field("LogonType"))
	assert.Equal(t, "NTLM", rec.Field("AuthenticationPackageName"))
	assert.Equal(t, "WKS01", rec.Field("WorkstationName"))
	assert.Equal(t, "", rec.Field("NoSuchField"))
}

func TestParseEventXML_Malformed(t *testing.T) {
	_, err := ParseEventXML("<Event><System>", "SRV01")
	assert.Error(t, err)
}

func TestQueryXPath(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Second)

	q := Query{
		Host:     "SRV01",
		Channel:  ChannelSecurity,
		EventIDs: []uint32{4624},
		Start:    start,
		End:      end,
		DataFilters: map[string]string{
			"LogonType":                 "3",
			"AuthenticationPackageName": "NTLM",
		},
	}

	want := "*[System[(EventID=4624) and " +
		"TimeCreated[@SystemTime>='2024-03-01T10:00:00.000Z' and @SystemTime<='2024-03-01T10:00:02.000Z']] and " +
		"EventData[Data[@Name='AuthenticationPackageName']='NTLM' and Data[@Name='LogonType']='3']]"
	assert.Equal(t, want, q.XPath())
}

func TestQueryXPath_MultipleIDs(t *testing.T) {
	q := Query{EventIDs: []uint32{4768, 4769}}
	assert.Equal(t, "*[System[(EventID=4768 or EventID=4769)]]", q.XPath())
}
