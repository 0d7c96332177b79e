package hik

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/clbanning/mxj/v2"
)

// ErrUnparseable reports a payload that is neither valid XML nor valid JSON.
// This is the only hard failure in normalization; every missing field is
// defaulted instead.
var ErrUnparseable = errors.New("hik: cannot parse payload")

// Decision is the grant outcome inferred from free-text vendor fields.
type Decision int

const (
	DecisionDenied Decision = iota
	DecisionGranted
	DecisionAlarm
)

// Event is the canonical shape produced from heterogeneous door controller
// payloads.
type Event struct {
	StationID       string
	Ts              time.Time
	Result          string
	Reason          string
	DoorIndex       *int
	ReaderIndex     *int
	PersonID        string
	PersonName      string
	CredentialType  string
	CredentialValue string
	Direction       string
	PicURL          string
	Granted         bool
	Raw             map[string]any
}

// Decide infers the grant outcome. The device does not expose one canonical
// boolean, so this is pattern matching over the status string, error code and
// event type. Alarm/tamper events override any positive signal.
func Decide(statusStr, errorCode, eventType string) Decision {
	statusStr = strings.ToLower(statusStr)
	eventType = strings.ToLower(eventType)

	if strings.Contains(eventType, "alarm") || strings.Contains(eventType, "tamper") {
		return DecisionAlarm
	}

	granted := false
	if strings.Contains(statusStr, "ok") || strings.Contains(statusStr, "success") || strings.Contains(statusStr, "pass") {
		granted = true
	} else if (errorCode == "0" || errorCode == "") &&
		!strings.Contains(eventType, "denied") && !strings.Contains(statusStr, "fail") {
		granted = true
	}
	if granted {
		return DecisionGranted
	}
	return DecisionDenied
}

// Normalize parses a raw webhook body into an Event. The body is treated as
// XML when the content type says so or it is wrapped in angle brackets,
// otherwise as JSON.
func Normalize(body []byte, contentType, defaultStationID string) (*Event, error) {
	data, err := parsePayload(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return FromMap(data, defaultStationID), nil
}

// FromMap normalizes an already-decoded payload. The envelope may be the top
// level object itself; nested AcsEvent is unwrapped when present.
func FromMap(data map[string]any, defaultStationID string) *Event {
	root := data
	if inner, ok := data["EventNotificationAlert"].(map[string]any); ok {
		root = inner
	}
	acs, _ := root["AcsEvent"].(map[string]any)
	if acs == nil {
		acs = map[string]any{}
	}

	ts := parseTimestamp(firstString(root["dateTime"], root["eventTime"], acs["absTime"]))

	statusStr := strings.ToLower(str(acs["statusString"]))
	errorCode := str(acs["errorCode"])
	eventType := strings.ToLower(firstString(root["eventType"], acs["eventType"]))

	granted := Decide(statusStr, errorCode, eventType) == DecisionGranted

	result := firstString(root["eventType"], acs["eventType"])
	if result == "" {
		result = "unknown"
	}

	return &Event{
		StationID:       pickStationID(root, acs, defaultStationID),
		Ts:              ts,
		Result:          result,
		Reason:          firstString(acs["errorCode"], acs["currentVerifyMode"]),
		DoorIndex:       toInt(acs["doorNo"]),
		ReaderIndex:     toInt(acs["readerNo"]),
		PersonID:        firstString(acs["employeeNoString"], acs["employeeNo"]),
		PersonName:      str(acs["name"]),
		CredentialType:  strings.ToLower(str(acs["currentVerifyMode"])),
		CredentialValue: str(acs["cardNo"]),
		Direction:       strings.ToLower(str(acs["accessDirection"])),
		PicURL:          firstString(acs["picUrl"], root["picUrl"]),
		Granted:         granted,
		Raw:             root,
	}
}

// FromFlatMap builds an Event from a pre-normalized flat payload, the shape
// the bench endpoint accepts. Fields live at the top level, the grant is
// forced and the credential type defaults to password so the downstream
// pipeline can be exercised without a controller.
func FromFlatMap(data map[string]any, defaultStationID string) *Event {
	stationID := strings.TrimSpace(str(data["station_id"]))
	if stationID == "" {
		stationID = defaultStationID
	}
	verifyMode := str(data["currentVerifyMode"])
	if verifyMode == "" {
		verifyMode = "password"
	}
	result := str(data["eventType"])
	if result == "" {
		result = "AccessControl"
	}
	direction := str(data["accessDirection"])
	if direction == "" {
		direction = "in"
	}

	return &Event{
		StationID:       stationID,
		Ts:              time.Now().UTC(),
		Result:          result,
		Reason:          verifyMode,
		PersonID:        str(data["employeeNoString"]),
		PersonName:      str(data["name"]),
		CredentialType:  strings.ToLower(verifyMode),
		CredentialValue: str(data["cardNo"]),
		Direction:       direction,
		PicURL:          str(data["picUrl"]),
		Granted:         true,
		Raw:             data,
	}
}

func parsePayload(body []byte, contentType string) (map[string]any, error) {
	ct := strings.ToLower(contentType)
	trimmed := strings.TrimSpace(string(body))
	if strings.Contains(ct, "xml") || strings.HasPrefix(trimmed, "<") {
		m, err := mxj.NewMapXml(body)
		if err != nil {
			return nil, err
		}
		return map[string]any(m), nil
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// pickStationID tries device-identifying fields in order, falling back to the
// process-wide default station.
func pickStationID(root, acs map[string]any, fallback string) string {
	for _, key := range []string{"stationId", "deviceId", "deviceID", "terminalNo", "terminalId", "devIndex"} {
		if v := firstString(acs[key], root[key]); v != "" {
			return strings.TrimSpace(v)
		}
	}
	return fallback
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

func str(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func firstString(vals ...any) string {
	for _, v := range vals {
		if s := str(v); s != "" {
			return s
		}
	}
	return ""
}

func toInt(v any) *int {
	s := str(v)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}
