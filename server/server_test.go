package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"showdamage/config"
	"showdamage/server/application"
	"showdamage/server/domain"
	"showdamage/server/handler"
)

func newTestServer(t *testing.T) (*httptest.Server, *handler.AcceptHandler) {
	t.Helper()
	store := config.NewStore(config.Default(), nil, "")
	cfg := domain.DefaultEndpointConfig()
	cfg.PingInterval = 0
	accept := handler.NewAcceptHandler(application.NewFactory(store), cfg)
	srv := httptest.NewServer(Route(accept))
	t.Cleanup(func() {
		accept.CloseAll(context.Background())
		srv.Close()
	})
	return srv, accept
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "hosts=0") {
		t.Errorf("body = %q, want hosts=0", body)
	}
}

// ホストとして接続し、assign を受け取ってからダメージを送ると描画が返ってくる
func TestHostRoundTrip(t *testing.T) {
	srv, accept := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.CloseNow()

	read := func() *domain.Frame {
		t.Helper()
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		f, err := domain.ParseFrame(data)
		if err != nil {
			t.Fatalf("ParseFrame: %v", err)
		}
		return f
	}

	assign := read()
	if assign.Payload.DataType != domain.DataTypeControl || domain.ControlSubType(assign.Payload.SubType) != domain.ControlSubTypeAssign {
		t.Fatalf("first frame = %+v, want assign", assign.Payload)
	}
	id := domain.SessionIDFromBytes(assign.Header.SessionID)
	if accept.Active() != 1 {
		t.Errorf("Active() = %d, want 1", accept.Active())
	}

	body := (&domain.DamagePayload{Victim: 11, Attacker: 1, Damage: 30, Health: 70, VictimTeam: 3, AttackerTeam: 2, Weapon: "ak47"}).Encode()
	if err := conn.Write(ctx, websocket.MessageBinary, domain.EncodeMessage(id, 1, domain.DataTypeEvent, uint8(domain.EventSubTypeDamage), body)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	for {
		f := read()
		if f.Payload.DataType != domain.DataTypeRender {
			continue
		}
		p, err := domain.ParseTextPayload(f.Body)
		if err != nil {
			t.Fatalf("ParseTextPayload: %v", err)
		}
		if p.Player != 1 || !strings.Contains(p.Text, "[70 HP]") {
			t.Errorf("render = %+v, want hit for player 1", p)
		}
		return
	}
}
