package bridge

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"vimeodl/internal/services"
)

// Action names understood by the host.
const (
	ActionPing     = "ping"
	ActionDownload = "download"
	ActionSavePage = "save_page"
)

// Request is one decoded inbound message.
type Request interface {
	Action() string
}

// Ping checks that the host is alive.
type Ping struct{}

// Download fetches each URL into Path. Titles[i], when present, names URLs[i].
type Download struct {
	Path   string
	URLs   []string
	Titles []string
}

// SavePage writes HTML to Path.
type SavePage struct {
	HTML string
	Path string
}

func (Ping) Action() string     { return ActionPing }
func (Download) Action() string { return ActionDownload }
func (SavePage) Action() string { return ActionSavePage }

// Response is the single reply sent for every request.
type Response struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Results []URLResult `json:"results,omitempty"`
}

// URLResult reports the outcome for one URL of a download request.
type URLResult struct {
	URL       string `json:"url"`
	Success   bool   `json:"success"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// ActionError reports a missing or unsupported action. Its message is sent
// to the browser verbatim.
type ActionError struct {
	Action string
}

func (e *ActionError) Error() string {
	if e.Action == "" {
		return "No action specified"
	}
	return "Unknown action: " + e.Action
}

func (e *ActionError) Unwrap() error { return services.ErrInvalidRequest }

type envelope struct {
	Action string   `json:"action"`
	Path   string   `json:"path"`
	URLs   []string `json:"urls"`
	Titles []string `json:"titles"`
	HTML   string   `json:"html"`
}

// DecodeRequest parses a frame body into its tagged variant.
func DecodeRequest(body []byte) (Request, error) {
	if !utf8.Valid(body) {
		return nil, services.Wrap(services.ErrProtocolDecode, "bridge", "decode", "message is not valid UTF-8", nil)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, services.Wrap(services.ErrProtocolDecode, "bridge", "decode", "message is not valid JSON", err)
	}
	switch action := strings.TrimSpace(env.Action); action {
	case "":
		return nil, &ActionError{}
	case ActionPing:
		return Ping{}, nil
	case ActionDownload:
		return Download{Path: env.Path, URLs: env.URLs, Titles: env.Titles}, nil
	case ActionSavePage:
		return SavePage{HTML: env.HTML, Path: env.Path}, nil
	default:
		return nil, &ActionError{Action: action}
	}
}

// normalized trims the request and drops blank URLs, keeping titles aligned.
func (d Download) normalized() Download {
	out := Download{Path: strings.TrimSpace(d.Path)}
	for i, url := range d.URLs {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		title := ""
		if i < len(d.Titles) {
			title = d.Titles[i]
		}
		out.URLs = append(out.URLs, url)
		out.Titles = append(out.Titles, title)
	}
	return out
}

func (d Download) validate() error {
	if d.Path == "" {
		return services.Wrap(services.ErrInvalidRequest, "bridge", ActionDownload, "path is required", nil)
	}
	if len(d.URLs) == 0 {
		return services.Wrap(services.ErrInvalidRequest, "bridge", ActionDownload, "urls are required", nil)
	}
	return nil
}

func summarize(failed, total int) string {
	return fmt.Sprintf("%d of %d downloads failed", failed, total)
}
