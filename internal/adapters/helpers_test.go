package adapters

import (
	"context"
	"fmt"

	"github.com/quotadeck/quotadeck/internal/dispatch"
)

// fakeDispatcher replays scripted responses in order and records every
// request it saw.
type fakeDispatcher struct {
	calls     []dispatch.Request
	responses []scripted
}

type scripted struct {
	status int
	body   string
	err    error
}

func (f *fakeDispatcher) Send(_ context.Context, _ string, req dispatch.Request) (*dispatch.Response, error) {
	f.calls = append(f.calls, req)
	if len(f.responses) == 0 {
		return nil, fmt.Errorf("unexpected request to %s", req.URL)
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	if next.err != nil {
		return nil, next.err
	}
	return &dispatch.Response{StatusCode: next.status, Body: []byte(next.body)}, nil
}

type fakeDownloader map[string]string

func (f fakeDownloader) DownloadText(_ context.Context, name string) (string, error) {
	text, ok := f[name]
	if !ok {
		return "", fmt.Errorf("no such file: %s", name)
	}
	return text, nil
}
