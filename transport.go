package uplink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/evergreen-ci/birch"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// DefaultEndpoint is the collection endpoint that receives reports.
const DefaultEndpoint = "https://bStats.org/submitData/bukkit"

const defaultRequestTimeout = time.Minute

// UserAgent identifies the submission protocol version to the
// endpoint.
var UserAgent = fmt.Sprintf("MC-Server/%d", ProtocolVersion)

// TransportOptions configure a Transport.
type TransportOptions struct {
	// Endpoint defaults to DefaultEndpoint.
	Endpoint string
	// Client defaults to an http.Client with a one minute timeout.
	Client *http.Client

	LogSentData           bool
	LogResponseStatusText bool

	stats *stats
}

// Transport serializes, compresses and posts reports. Each Send is a
// single attempt; there is no retry.
type Transport struct {
	endpoint     string
	client       *http.Client
	logSentData  bool
	logResponses bool
	stats        *stats
}

// NewTransport constructs a Transport.
func NewTransport(opts TransportOptions) *Transport {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: defaultRequestTimeout}
	}

	return &Transport{
		endpoint:     opts.Endpoint,
		client:       opts.Client,
		logSentData:  opts.LogSentData,
		logResponses: opts.LogResponseStatusText,
		stats:        opts.stats,
	}
}

// Send submits one report. It refuses to run on the primary execution
// context, returning ErrNotOnWorkerThread before touching the
// network. Failures are reported as *NetworkError or *ProtocolError.
func (t *Transport) Send(ctx context.Context, doc *birch.Document) error {
	if IsPrimaryContext(ctx) {
		t.stats.submission(statusNotOnWorker)
		return ErrNotOnWorkerThread
	}

	err := t.send(ctx, doc)

	switch {
	case err == nil:
		t.stats.submission(statusSuccess)
	case isNetworkError(err):
		t.stats.submission(statusNetworkError)
	default:
		t.stats.submission(statusProtocol)
	}

	return err
}

func (t *Transport) send(ctx context.Context, doc *birch.Document) error {
	if doc == nil {
		return &ProtocolError{Err: errors.New("cannot send a nil report")}
	}

	payload, err := doc.MarshalJSON()
	if err != nil {
		return &ProtocolError{Err: errors.Wrap(err, "problem serializing report")}
	}

	grip.InfoWhen(t.logSentData, message.Fields{
		"message":  "sending report",
		"endpoint": t.endpoint,
		"payload":  string(payload),
	})

	body, err := compressBuffer(payload)
	if err != nil {
		return &ProtocolError{Err: errors.Wrap(err, "problem compressing report")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return &ProtocolError{Err: errors.Wrap(err, "problem building request")}
	}
	req.Close = true
	req.ContentLength = int64(len(body))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Connection", "close")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return &NetworkError{Err: errors.Wrapf(err, "problem posting report to '%s'", t.endpoint)}
	}
	defer resp.Body.Close()

	response, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: errors.Wrap(err, "problem reading response")}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &ProtocolError{
			StatusCode: resp.StatusCode,
			Err:        errors.Errorf("response: %s", response),
		}
	}

	t.stats.payload(len(body))

	grip.InfoWhen(t.logResponses, message.Fields{
		"message":  "sent report and received response",
		"status":   resp.StatusCode,
		"response": string(response),
	})

	return nil
}

func isNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
