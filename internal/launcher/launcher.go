// Package launcher runs game images in sandboxed containers, binding each
// internal port to the party's allocated host port, and reports the
// lifecycle on the message bus.
package launcher

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"

	"github.com/webgames/backend/internal/models"
	"github.com/webgames/backend/internal/msg"
)

// EndGameFunc returns a finished party's groups to idle
type EndGameFunc func(ctx context.Context, partyID uuid.UUID) error

type Launcher struct {
	cli     *client.Client
	bus     msg.Bus
	endGame EndGameFunc

	// base bounds container waits; cancelled on process shutdown. The
	// containers themselves are left to the host's lifecycle manager.
	base context.Context
}

func New(base context.Context, bus msg.Bus, endGame EndGameFunc) (*Launcher, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &Launcher{cli: cli, bus: bus, endGame: endGame, base: base}, nil
}

// Launch starts the party's container and blocks until it exits, then ends
// the game. Launch failures are logged, the party is ended and no
// game:started is published.
func (l *Launcher) Launch(game models.Game, partyID uuid.UUID, party models.Party) {
	ctx := l.base

	containerID, err := l.create(ctx, game, partyID, party)
	if err == nil {
		err = l.cli.ContainerStart(ctx, containerID, container.StartOptions{})
	}
	if err != nil {
		log.Printf("[LAUNCHER] launch failed for party %s (image %s): %v", partyID, game.Image, err)
		if err := l.endGame(ctx, partyID); err != nil {
			log.Printf("[LAUNCHER] end party %s after failed launch: %v", partyID, err)
		}
		return
	}

	log.Printf("[LAUNCHER] party %s running in container %.12s", partyID, containerID)
	payload := map[string]any{"type": "game:started", "host": party.Host, "ports": party.Ports}
	if err := l.bus.Publish(ctx, msg.PartyTopic(partyID), payload); err != nil {
		log.Printf("[LAUNCHER] publish game:started for party %s: %v", partyID, err)
	}

	go l.streamLogs(ctx, containerID, partyID)

	l.wait(ctx, containerID, partyID)

	if err := l.endGame(context.Background(), partyID); err != nil {
		log.Printf("[LAUNCHER] end party %s: %v", partyID, err)
	}
}

func (l *Launcher) create(ctx context.Context, game models.Game, partyID uuid.UUID, party models.Party) (string, error) {
	if len(party.Ports) != len(game.Ports) {
		return "", fmt.Errorf("party has %d ports, game exposes %d", len(party.Ports), len(game.Ports))
	}

	exposed := make(nat.PortSet, len(game.Ports))
	bindings := make(nat.PortMap, len(game.Ports))
	for i, internal := range game.Ports {
		port, err := nat.NewPort("tcp", strconv.FormatInt(internal, 10))
		if err != nil {
			return "", err
		}
		exposed[port] = struct{}{}
		bindings[port] = []nat.PortBinding{{
			HostIP:   "0.0.0.0",
			HostPort: strconv.Itoa(party.Ports[i]),
		}}
	}

	created, err := l.cli.ContainerCreate(ctx,
		&container.Config{Image: game.Image, ExposedPorts: exposed},
		&container.HostConfig{PortBindings: bindings},
		nil, nil, "party-"+partyID.String())
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (l *Launcher) streamLogs(ctx context.Context, containerID string, partyID uuid.UUID) {
	logs, err := l.cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		log.Printf("[LAUNCHER] logs for party %s: %v", partyID, err)
		return
	}
	defer logs.Close()

	w := &partyLogWriter{partyID: partyID}
	if _, err := stdcopy.StdCopy(w, w, logs); err != nil && ctx.Err() == nil {
		log.Printf("[LAUNCHER] log stream for party %s ended: %v", partyID, err)
	}
	w.flush()
}

func (l *Launcher) wait(ctx context.Context, containerID string, partyID uuid.UUID) {
	statusCh, errCh := l.cli.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case status := <-statusCh:
		log.Printf("[LAUNCHER] party %s container exited with status %d", partyID, status.StatusCode)
	case err := <-errCh:
		log.Printf("[LAUNCHER] wait for party %s: %v", partyID, err)
	case <-ctx.Done():
		log.Printf("[LAUNCHER] shutdown, no longer waiting on party %s", partyID)
	}
}

// partyLogWriter relays container output line by line into the process log
type partyLogWriter struct {
	partyID uuid.UUID
	buf     bytes.Buffer
}

func (w *partyLogWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			w.buf.WriteString(line)
			break
		}
		log.Printf("[PARTY %s] %s", w.partyID, line[:len(line)-1])
	}
	return len(p), nil
}

func (w *partyLogWriter) flush() {
	if w.buf.Len() > 0 {
		log.Printf("[PARTY %s] %s", w.partyID, w.buf.String())
		w.buf.Reset()
	}
}
