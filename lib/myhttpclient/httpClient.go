package myhttpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/MarcGrol/ticketshop/lib/mylog"
)

const (
	defaultTimeout = 5 * time.Second
)

type jsonHTTPClient struct {
	client *http.Client
	logger mylog.Logger
}

func newJSONHTTPClient(timeout time.Duration) HTTPSender {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &jsonHTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		logger: mylog.New("httpclient"),
	}
}

func (hc jsonHTTPClient) Send(c context.Context, method string, url string, body []byte) (int, []byte, error) {
	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(c, method, url, bodyReader)
	if err != nil {
		return 0, []byte{}, fmt.Errorf("error creating http request for %s %s: %s", method, url, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	reqDump, err := httputil.DumpRequestOut(httpReq, true)
	if err == nil {
		hc.logger.Log(c, "", mylog.SeverityDebug, "HTTP-req:\n%s", string(reqDump))
	}

	httpResp, err := hc.client.Do(httpReq)
	if err != nil {
		return 0, []byte{}, fmt.Errorf("error sending %s %s: %s", method, url, err)
	}
	defer httpResp.Body.Close()

	respPayload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return 0, []byte{}, fmt.Errorf("error reading response %s %s: %s", method, url, err)
	}

	hc.logger.Log(c, "", mylog.SeverityDebug, "HTTP-resp: %s %s -> %d", method, url, httpResp.StatusCode)

	return httpResp.StatusCode, respPayload, nil
}
