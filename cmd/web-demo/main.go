// A standalone demo server: one anonymous round on the default course, no
// auth, no database. Connect a browser client to ws://localhost:8081/ws and
// play with aim/strike frames.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/puttworks/putt-server-go/internal/config"
	"github.com/puttworks/putt-server-go/internal/game/course"
	"github.com/puttworks/putt-server-go/internal/round"
)

var addr = flag.String("addr", ":8081", "listen address")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for demo
	},
}

type demo struct {
	rounds *round.Manager
	logger *zap.Logger
}

func (d *demo) handleWS(w http.ResponseWriter, r *http.Request) {
	rnd, ok := d.rounds.RoundByPlayer("demo")
	if !ok {
		var err error
		rnd, err = d.rounds.CreateRound("demo", course.Default())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	d.logger.Info("demo client connected", zap.String("remote", r.RemoteAddr))

	msgs := rnd.Subscribe()
	defer rnd.Unsubscribe(msgs)

	go func() {
		for msg := range msgs {
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "round closed"))
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame struct {
			Type      string  `json:"type"`
			X         float64 `json:"x"`
			Z         float64 `json:"z"`
			Power     float64 `json:"power"`
			Mode      string  `json:"mode"`
			Immediate bool    `json:"immediate"`
		}
		if err := json.Unmarshal(payload, &frame); err != nil {
			continue
		}
		switch frame.Type {
		case "aim":
			rnd.Aim(frame.X, frame.Z)
		case "strike":
			rnd.Strike(frame.Power)
		case "continue":
			rnd.Continue()
		case "camera":
			rnd.SetCameraMode(frame.Mode, frame.Immediate)
		case "pause":
			rnd.Pause()
		case "resume":
			rnd.Resume()
		case "restart":
			d.rounds.CloseRound(rnd.ID)
			return
		}
	}
}

func main() {
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	cfg := config.GameConfig{
		TickRate:         60,
		SnapshotRate:     20,
		MaxStrikePower:   8,
		HazardResetDelay: 0.8,
		IdleTimeout:      time.Hour,
		PersistWorkers:   1,
	}
	rounds, err := round.NewManager(cfg, nil, nil, logger)
	if err != nil {
		log.Fatalf("round manager: %v", err)
	}
	defer rounds.Shutdown()

	d := &demo{rounds: rounds, logger: logger}
	http.HandleFunc("/ws", d.handleWS)
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	log.Printf("putt demo server on %s (ws endpoint: /ws)", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}
