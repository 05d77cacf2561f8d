package directory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputerLegacy(t *testing.T) {
	tests := []struct {
		version string
		legacy  bool
	}{
		{"10.0 (19045)", false},
		{"10.0", false},
		{"6.3 (9600)", false},
		{"6.2 (9200)", false},
		{"6.1 (7601)", true},
		{"6.0 (6002)", true},
		{"5.2 (3790)", true},
		{"", false},        // unknown version is treated as modern
		{"unknown", false}, // unparsable likewise
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			c := Computer{Name: "WKS01", OSVersion: tt.version}
			assert.Equal(t, tt.legacy, c.Legacy())
		})
	}
}

func TestMachineName(t *testing.T) {
	assert.Equal(t, "WKS01", machineName("WKS01$"))
	assert.Equal(t, "WKS01", machineName("WKS01.corp.local"))
	assert.Equal(t, "WKS01", machineName("WKS01"))
}

func TestParseCIMDatetime(t *testing.T) {
	got, err := parseCIMDatetime("20240301101530.123456+060")
	require.NoError(t, err)

	want := time.Date(2024, 3, 1, 10, 15, 30, 123456000, time.FixedZone("", 3600))
	assert.True(t, got.Equal(want), "got %v want %v", got, want)
}

func TestParseCIMDatetime_NegativeOffset(t *testing.T) {
	got, err := parseCIMDatetime("20240301101530.000000-300")
	require.NoError(t, err)

	want := time.Date(2024, 3, 1, 10, 15, 30, 0, time.FixedZone("", -300*60))
	assert.True(t, got.Equal(want))
}

func TestParseCIMDatetime_Malformed(t *testing.T) {
	for _, s := range []string{"", "garbage", "20240301101530.123456", "20240301101530.123456*060"} {
		_, err := parseCIMDatetime(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestFirstAddr(t *testing.T) {
	r := stubResolver{addrs: []string{"10.0.0.5", "10.0.0.6"}}
	assert.Equal(t, "10.0.0.5", FirstAddr(r, "WKS01"))

	assert.Equal(t, "", FirstAddr(stubResolver{}, "WKS01"))
}

type stubResolver struct {
	addrs []string
}

func (s stubResolver) AccountName(sid string) (string, bool)           { return "", false }
func (s stubResolver) AccountSID(domain, user string) (string, bool)   { return "", false }
func (s stubResolver) Computer(name string) (Computer, bool)           { return Computer{}, false }
func (s stubResolver) Addrs(host string) []string                      { return s.addrs }
func (s stubResolver) DomainControllers(domain string) []string        { return nil }
func (s stubResolver) ClockSkew(host string) (time.Duration, error)    { return 0, nil }
