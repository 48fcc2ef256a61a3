package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pglogrepl"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/thiagomk/eventdesk/internal/config"
)

const (
	standbyInterval  = 10 * time.Second
	reconnectBackoff = time.Second
	maxBackoff       = 30 * time.Second
)

// ReplicationWatcher streams logical replication messages from Postgres and
// turns committed inserts, updates and deletes into Change notifications. The
// slot is created temporary so it is dropped automatically on disconnect and
// never retains WAL while we are away.
type ReplicationWatcher struct {
	cfg     config.Config
	changes chan Change
	cancel  context.CancelFunc
	done    chan struct{}
}

// StartReplication connects to the database and begins watching the configured
// publication. The returned watcher reconnects on its own after stream errors.
func StartReplication(ctx context.Context, cfg *config.Config) (*ReplicationWatcher, error) {
	if cfg.DBURL == "" {
		return nil, fmt.Errorf("watch: db-url is required")
	}
	runCtx, cancel := context.WithCancel(context.Background())
	w := &ReplicationWatcher{
		cfg:     *cfg,
		changes: make(chan Change, 64),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go w.run(runCtx)
	return w, nil
}

func (w *ReplicationWatcher) Changes() <-chan Change { return w.changes }

func (w *ReplicationWatcher) Close() error {
	w.cancel()
	<-w.done
	return nil
}

func (w *ReplicationWatcher) run(ctx context.Context) {
	defer close(w.done)
	defer close(w.changes)

	backoff := reconnectBackoff
	for {
		err := w.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Error("replication stream ended, reconnecting", "error", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// stream runs one replication session. It returns when the connection breaks
// or ctx is cancelled.
func (w *ReplicationWatcher) stream(ctx context.Context) error {
	connCfg, err := pgconn.ParseConfig(w.cfg.DBURL)
	if err != nil {
		return fmt.Errorf("watch: parse db-url: %w", err)
	}
	connCfg.RuntimeParams["replication"] = "database"

	conn, err := pgconn.ConnectConfig(ctx, connCfg)
	if err != nil {
		return fmt.Errorf("watch: connect: %w", err)
	}
	defer conn.Close(context.Background())

	sysident, err := pglogrepl.IdentifySystem(ctx, conn)
	if err != nil {
		return fmt.Errorf("watch: identify system: %w", err)
	}

	_, err = pglogrepl.CreateReplicationSlot(ctx, conn, w.cfg.ReplicationSlot, "pgoutput",
		pglogrepl.CreateReplicationSlotOptions{Temporary: true})
	if err != nil && !slotExists(err) {
		return fmt.Errorf("watch: create replication slot %q: %w", w.cfg.ReplicationSlot, err)
	}

	err = pglogrepl.StartReplication(ctx, conn, w.cfg.ReplicationSlot, sysident.XLogPos,
		pglogrepl.StartReplicationOptions{PluginArgs: []string{
			"proto_version '1'",
			fmt.Sprintf("publication_names '%s'", w.cfg.Publication),
		}})
	if err != nil {
		return fmt.Errorf("watch: start replication: %w", err)
	}
	log.Info("replication stream started",
		"slot", w.cfg.ReplicationSlot, "publication", w.cfg.Publication, "pos", sysident.XLogPos)

	clientXLogPos := sysident.XLogPos
	relations := map[uint32]string{}
	nextStandby := time.Now().Add(standbyInterval)

	for {
		if time.Now().After(nextStandby) {
			err = pglogrepl.SendStandbyStatusUpdate(ctx, conn,
				pglogrepl.StandbyStatusUpdate{WALWritePosition: clientXLogPos})
			if err != nil {
				return fmt.Errorf("watch: send standby status: %w", err)
			}
			nextStandby = time.Now().Add(standbyInterval)
		}

		recvCtx, cancel := context.WithDeadline(ctx, nextStandby)
		rawMsg, err := conn.ReceiveMessage(recvCtx)
		cancel()
		if err != nil {
			if pgconn.Timeout(err) && ctx.Err() == nil {
				continue
			}
			return fmt.Errorf("watch: receive: %w", err)
		}

		msg, ok := rawMsg.(*pgproto3.CopyData)
		if !ok {
			continue
		}

		switch msg.Data[0] {
		case pglogrepl.PrimaryKeepaliveMessageByteID:
			pkm, err := pglogrepl.ParsePrimaryKeepaliveMessage(msg.Data[1:])
			if err != nil {
				return fmt.Errorf("watch: parse keepalive: %w", err)
			}
			if pkm.ReplyRequested {
				nextStandby = time.Time{}
			}

		case pglogrepl.XLogDataByteID:
			xld, err := pglogrepl.ParseXLogData(msg.Data[1:])
			if err != nil {
				return fmt.Errorf("watch: parse xlog data: %w", err)
			}
			w.handleWAL(xld.WALData, relations)
			clientXLogPos = xld.WALStart + pglogrepl.LSN(len(xld.WALData))
		}
	}
}

// handleWAL decodes one pgoutput message and emits a Change for row-level
// modifications. Decode failures are logged and skipped, a bad message must
// not kill the stream.
func (w *ReplicationWatcher) handleWAL(walData []byte, relations map[uint32]string) {
	logicalMsg, err := pglogrepl.Parse(walData)
	if err != nil {
		log.Warn("replication: undecodable message, skipping", "error", err)
		return
	}

	switch m := logicalMsg.(type) {
	case *pglogrepl.RelationMessage:
		relations[m.RelationID] = m.RelationName
	case *pglogrepl.InsertMessage:
		w.emit(relations[m.RelationID])
	case *pglogrepl.UpdateMessage:
		w.emit(relations[m.RelationID])
	case *pglogrepl.DeleteMessage:
		w.emit(relations[m.RelationID])
	case *pglogrepl.TruncateMessage:
		for _, id := range m.RelationIDs {
			w.emit(relations[id])
		}
	}
}

// emit never blocks. If the channel is full the consumer is already behind on
// notifications for every queued collection and the poll fallback covers us.
func (w *ReplicationWatcher) emit(collection string) {
	if collection == "" {
		return
	}
	select {
	case w.changes <- Change{Collection: collection}:
	default:
		log.Debug("replication: change channel full, dropping", "collection", collection)
	}
}

func slotExists(err error) bool {
	var pgErr *pgconn.PgError
	// 42710: duplicate_object
	return errors.As(err, &pgErr) && pgErr.Code == "42710"
}
