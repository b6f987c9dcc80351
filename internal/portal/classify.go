// Package portal talks to the student portal and classifies its responses.
package portal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// Endpoint names a portal API operation.
type Endpoint string

const (
	EndpointHomeData      Endpoint = "getHomeData"
	EndpointWifiStatus    Endpoint = "getMyWifi"
	EndpointActivateWifi  Endpoint = "changeWifi"
	EndpointResultPeriods Endpoint = "getResultPeriods"
	EndpointResults       Endpoint = "getMyResults"
)

// Kind is the recovery class of an upstream response.
type Kind int

const (
	KindSuccess Kind = iota
	KindTransient
	KindReauth
	KindBusiness
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindTransient:
		return "transient"
	case KindReauth:
		return "reauth"
	case KindBusiness:
		return "business"
	default:
		return "unknown"
	}
}

// BusinessKind identifies a domain rejection carried in a valid response.
type BusinessKind string

// BusinessInsufficientBalance means results are withheld until fees are paid.
const BusinessInsufficientBalance BusinessKind = "insufficient_balance"

// Default messages for transient failures.
const (
	MsgTransport    = "Failed to communicate with portal. Please try again."
	MsgServerError  = "Portal server error. Please try again later."
	MsgUnexpected   = "Unexpected response from portal."
	MsgInvalidReply = "Invalid response from portal"
	MsgAuthExpired  = "Authentication failed. Please login again."
)

// RawResponse is what the transport observed for one call.
type RawResponse struct {
	StatusCode int
	Body       []byte
	Err        error
}

// Outcome is the classified form of a RawResponse. Payload holds the JSON to
// decode on success. For the WiFi status endpoint a null payload is a success.
type Outcome struct {
	Kind           Kind
	Message        string
	Business       BusinessKind
	CurrentBalance float64
	Payload        json.RawMessage
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool { return o.Kind == KindSuccess }

func transient(msg string) Outcome {
	if msg == "" {
		msg = MsgInvalidReply
	}
	return Outcome{Kind: KindTransient, Message: msg}
}

type envelope struct {
	Valid      bool            `json:"valid"`
	Message    string          `json:"message"`
	Body       json.RawMessage `json:"body"`
	PeriodName *string         `json:"periodname"`
}

type errorBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

var balancePattern = regexp.MustCompile(`(?i)current balance is\s*(-?[\d.,]+)`)

// Classify maps a raw portal response to an Outcome. Rules run in order:
// transport failure, 401, other non-2xx, body extraction, the results balance
// rejection, then the valid envelope.
func Classify(ep Endpoint, raw RawResponse) Outcome {
	if raw.Err != nil {
		return transient(MsgTransport)
	}
	if raw.StatusCode == http.StatusUnauthorized {
		return Outcome{Kind: KindReauth, Message: MsgAuthExpired}
	}
	if raw.StatusCode >= 500 {
		return transient(MsgServerError)
	}
	if raw.StatusCode < 200 || raw.StatusCode > 299 {
		return transient(fmt.Sprintf("Portal returned status %d.", raw.StatusCode))
	}

	doc, ok := extractJSON(raw.Body)
	if !ok {
		return transient(MsgUnexpected)
	}
	var env envelope
	if err := json.Unmarshal(doc, &env); err != nil {
		return transient(MsgUnexpected)
	}

	if ep == EndpointResults {
		if out, matched := classifyResults(doc, env); matched {
			return out
		}
	}

	if env.Valid && hasBody(env.Body) {
		return Outcome{Kind: KindSuccess, Message: env.Message, Payload: env.Body}
	}
	if env.Valid && ep == EndpointWifiStatus {
		return Outcome{Kind: KindSuccess, Message: env.Message, Payload: json.RawMessage("null")}
	}
	return transient(env.Message)
}

func classifyResults(doc []byte, env envelope) (Outcome, bool) {
	if hasBody(env.Body) {
		var eb errorBody
		if err := json.Unmarshal(env.Body, &eb); err == nil && eb.Error {
			if balance, ok := parseBalance(eb.Message); ok {
				return Outcome{
					Kind:           KindBusiness,
					Message:        eb.Message,
					Business:       BusinessInsufficientBalance,
					CurrentBalance: balance,
				}, true
			}
			return transient(eb.Message), true
		}
	}
	if env.PeriodName != nil {
		return Outcome{Kind: KindSuccess, Message: env.Message, Payload: json.RawMessage(doc)}, true
	}
	return Outcome{}, false
}

// parseBalance extracts the absolute amount from a "current balance is"
// message, tolerating thousands separators and a trailing period.
func parseBalance(msg string) (float64, bool) {
	m := balancePattern.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	num := strings.ReplaceAll(m[1], ",", "")
	num = strings.TrimRight(num, ".")
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return math.Abs(f), true
}

func hasBody(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte("false")) {
		return false
	}
	return true
}

// extractJSON returns the first balanced {...} span of body that is a valid
// JSON document. Braces inside strings and escaped quotes are ignored.
func extractJSON(body []byte) ([]byte, bool) {
	for start := bytes.IndexByte(body, '{'); start >= 0; {
		if end, ok := matchBrace(body, start); ok {
			span := body[start : end+1]
			if json.Valid(span) {
				return span, true
			}
		}
		next := bytes.IndexByte(body[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, false
}

func matchBrace(b []byte, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(b); i++ {
		c := b[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
