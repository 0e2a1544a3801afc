//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/encodeous/manasim/state"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	ImageName   = "manasim-debug:latest"
	AppPort     = "8080/tcp"
	WaitTimeout = 2 * time.Minute
)

// Node is one manasim process in a container
type Node struct {
	t         *testing.T
	Container testcontainers.Container
	URL       string
}

func configReader(t *testing.T, cfg state.Config) io.Reader {
	t.Helper()
	out, err := cfg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(out)
}

func request(t *testing.T, cfg state.Config, cmd []string, waitFor wait.Strategy) testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Image:        ImageName,
		ExposedPorts: []string{AppPort},
		Files: []testcontainers.ContainerFile{
			{
				Reader:            configReader(t, cfg),
				ContainerFilePath: "/config.yaml",
				FileMode:          0o600,
			},
		},
		Cmd:        append([]string{"-c", "/config.yaml"}, cmd...),
		WaitingFor: waitFor,
	}
}

// StartNode runs the http api with cfg and waits until it serves requests
func StartNode(t *testing.T, cfg state.Config) *Node {
	t.Helper()
	ctx := context.Background()
	req := request(t, cfg, []string{"run", "--listen", "0.0.0.0:8080"},
		wait.ForHTTP("/v1/stats").WithPort(AppPort).WithStartupTimeout(WaitTimeout))

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(c); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})
	endpoint, err := c.PortEndpoint(ctx, AppPort, "http")
	if err != nil {
		t.Fatal(err)
	}
	return &Node{t: t, Container: c, URL: endpoint}
}

// RunCommand runs a one-shot command to completion and returns its output
func RunCommand(t *testing.T, cfg state.Config, cmd ...string) string {
	t.Helper()
	ctx := context.Background()
	req := request(t, cfg, cmd, wait.ForExit().WithExitTimeout(WaitTimeout))

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to run container: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(c); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()
	logs, err := c.Logs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer logs.Close()
	out, err := io.ReadAll(logs)
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

func (n *Node) Get(path string, out any) int {
	n.t.Helper()
	res, err := http.Get(n.URL + path)
	if err != nil {
		n.t.Fatal(err)
	}
	defer res.Body.Close()
	if out != nil && res.StatusCode == http.StatusOK {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			n.t.Fatal(err)
		}
	}
	return res.StatusCode
}

func (n *Node) Register(secret state.NodeSecret) int {
	n.t.Helper()
	body := fmt.Sprintf(`{"secret":%q}`, secret.Encode())
	res, err := http.Post(n.URL+"/v1/register", "application/json", strings.NewReader(body))
	if err != nil {
		n.t.Fatal(err)
	}
	defer res.Body.Close()
	return res.StatusCode
}
