//go:build windows

package eventlog

import (
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
	"time"
	"unsafe"

	"github.com/lma1216/ketshash/internal/logger"
	"github.com/lma1216/ketshash/pkg/types"
	"golang.org/x/sys/windows"
)

// Windows Event Log API constants
const (
	EvtQueryChannelPath         = 0x1
	EvtQueryForwardDirection    = 0x100
	EvtQueryTolerateQueryErrors = 0x1000

	EvtRenderEventXml = 1

	// EvtRpcLogin is the only login type EvtOpenSession accepts.
	EvtRpcLogin = 1

	// EvtRpcLoginAuthDefault negotiates the caller's ambient credentials.
	EvtRpcLoginAuthDefault = 0

	ERROR_NO_MORE_ITEMS = 259
)

var (
	wevtapi            = windows.NewLazySystemDLL("wevtapi.dll")
	procEvtQuery       = wevtapi.NewProc("EvtQuery")
	procEvtNext        = wevtapi.NewProc("EvtNext")
	procEvtRender      = wevtapi.NewProc("EvtRender")
	procEvtClose       = wevtapi.NewProc("EvtClose")
	procEvtOpenSession = wevtapi.NewProc("EvtOpenSession")
)

// evtRpcLogin mirrors EVT_RPC_LOGIN. Nil User/Password means the process
// token authenticates the RPC session.
type evtRpcLogin struct {
	Server   *uint16
	User     *uint16
	Domain   *uint16
	Password *uint16
	Flags    uint32
}

// probeTimeout bounds the reachability check and is well under the
// RPC layer's own connect timeout.
const probeTimeout = 2 * time.Second

// rpcPort is the RPC endpoint mapper the remote event log API connects
// through; a host that does not answer here cannot serve queries either.
const rpcPort = "135"

// RemoteLog queries local and remote event log channels through wevtapi.
// Zero value is ready to use; safe for concurrent use, each query owns
// its own handles.
type RemoteLog struct{}

// NewRemoteLog returns a wevtapi-backed Source.
func NewRemoteLog() *RemoteLog {
	return &RemoteLog{}
}

// Reachable probes the host's RPC endpoint mapper with a short timeout.
func (r *RemoteLog) Reachable(host string) bool {
	if isLocalHost(host) {
		return true
	}
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, rpcPort), probeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Events runs the query and returns every matching record in the order
// the log returns them. Failure of any kind yields an empty slice: the
// caller retries on its next poll cycle, and the failed window is
// re-covered by the widened interval.
func (r *RemoteLog) Events(q Query) []types.Record {
	xpath := q.XPath()
	logger.APICall("EvtQuery", q.Host, q.Channel, xpath)

	session, err := openSession(q.Host)
	if err != nil {
		logger.Warn("event query: session to %s failed: %v", q.Host, err)
		return nil
	}
	defer evtClose(session)

	handle, err := evtQuery(session, q.Channel, xpath)
	if err != nil {
		logger.Warn("event query: %s %s failed: %v", q.Host, q.Channel, err)
		return nil
	}
	defer evtClose(handle)

	var records []types.Record

	const batchSize = 100
	eventHandles := make([]syscall.Handle, batchSize)

	for {
		returned, err := evtNext(handle, eventHandles)
		if err != nil {
			if err == syscall.Errno(ERROR_NO_MORE_ITEMS) {
				break
			}
			logger.Warn("event query: EvtNext on %s failed: %v", q.Host, err)
			break
		}

		for i := uint32(0); i < returned; i++ {
			eventHandle := eventHandles[i]

			eventXML, err := renderEventXML(eventHandle)
			evtClose(eventHandle) // Close immediately after use

			if err != nil {
				continue
			}
			if q.Contains != "" && !strings.Contains(eventXML, q.Contains) {
				continue
			}

			rec, err := ParseEventXML(eventXML, q.Host)
			if err != nil {
				continue
			}
			records = append(records, *rec)
		}

		if returned < batchSize {
			break
		}
	}

	logger.Debug("event query: %s %s [%s .. %s] -> %d records",
		q.Host, q.Channel,
		q.Start.Format("15:04:05"), q.End.Format("15:04:05"), len(records))

	return records
}

// isLocalHost reports whether the name refers to this machine, so the
// query can skip the RPC session entirely.
func isLocalHost(host string) bool {
	switch {
	case host == "", host == ".", host == "127.0.0.1", host == "::1":
		return true
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	hostname, err := os.Hostname()
	if err != nil {
		return false
	}
	short, _, _ := strings.Cut(host, ".")
	return strings.EqualFold(host, hostname) || strings.EqualFold(short, hostname)
}

// Windows API wrappers

func openSession(host string) (syscall.Handle, error) {
	if isLocalHost(host) {
		return 0, nil // session 0 = local machine
	}

	serverPtr, err := syscall.UTF16PtrFromString(host)
	if err != nil {
		return 0, fmt.Errorf("bad host name %q: %w", host, err)
	}

	login := evtRpcLogin{
		Server: serverPtr,
		Flags:  EvtRpcLoginAuthDefault,
	}

	r1, _, callErr := procEvtOpenSession.Call(
		uintptr(EvtRpcLogin),
		uintptr(unsafe.Pointer(&login)),
		0, // Timeout, reserved
		0, // Flags, reserved
	)
	if r1 == 0 {
		return 0, fmt.Errorf("EvtOpenSession: %w", callErr)
	}
	return syscall.Handle(r1), nil
}

func evtQuery(session syscall.Handle, channel, query string) (syscall.Handle, error) {
	channelPtr, _ := syscall.UTF16PtrFromString(channel)
	queryPtr, _ := syscall.UTF16PtrFromString(query)

	r1, _, err := procEvtQuery.Call(
		uintptr(session),
		uintptr(unsafe.Pointer(channelPtr)),
		uintptr(unsafe.Pointer(queryPtr)),
		uintptr(EvtQueryChannelPath|EvtQueryForwardDirection|EvtQueryTolerateQueryErrors),
	)

	if r1 == 0 {
		return 0, err
	}
	return syscall.Handle(r1), nil
}

func evtNext(queryHandle syscall.Handle, events []syscall.Handle) (uint32, error) {
	var returned uint32

	r1, _, err := procEvtNext.Call(
		uintptr(queryHandle),
		uintptr(len(events)),
		uintptr(unsafe.Pointer(&events[0])),
		uintptr(2000), // Timeout in ms
		0,             // Reserved
		uintptr(unsafe.Pointer(&returned)),
	)

	if r1 == 0 {
		return returned, err
	}
	return returned, nil
}

func evtClose(handle syscall.Handle) {
	if handle != 0 {
		procEvtClose.Call(uintptr(handle))
	}
}

func renderEventXML(eventHandle syscall.Handle) (string, error) {
	var bufferUsed uint32
	var propertyCount uint32

	// First call to get required buffer size
	procEvtRender.Call(
		0,
		uintptr(eventHandle),
		uintptr(EvtRenderEventXml),
		0,
		0,
		uintptr(unsafe.Pointer(&bufferUsed)),
		uintptr(unsafe.Pointer(&propertyCount)),
	)

	if bufferUsed == 0 {
		return "", fmt.Errorf("failed to get buffer size")
	}

	bufferSize := bufferUsed
	buffer := make([]uint16, bufferSize/2)

	// Second call to get the actual data
	r1, _, err := procEvtRender.Call(
		0,
		uintptr(eventHandle),
		uintptr(EvtRenderEventXml),
		uintptr(bufferSize),
		uintptr(unsafe.Pointer(&buffer[0])),
		uintptr(unsafe.Pointer(&bufferUsed)),
		uintptr(unsafe.Pointer(&propertyCount)),
	)

	if r1 == 0 {
		return "", err
	}

	return syscall.UTF16ToString(buffer), nil
}
