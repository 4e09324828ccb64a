// Package drive keeps the snapshot as a JSON file in Google Drive. It has
// no change stream, so the application pushes and pulls on demand.
package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"hhsfinance/internal/backup"
	"hhsfinance/internal/core"
	"hhsfinance/internal/gateway"
)

const (
	DefaultFileName = "hhsfinance_sync.json"
	maxDocumentSize = 32 << 20
)

// Scope is the narrowest scope that lets the app manage its own file.
const Scope = drive.DriveFileScope

type Config struct {
	FolderID string
	FileName string
	Options  []option.ClientOption
}

type Gateway struct {
	svc      *drive.Service
	folderID string
	fileName string
	logger   *slog.Logger

	mu     sync.Mutex
	fileID string
}

var _ gateway.Gateway = (*Gateway)(nil)

func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Gateway, error) {
	if cfg.FileName == "" {
		cfg.FileName = DefaultFileName
	}
	if logger == nil {
		logger = slog.Default()
	}
	svc, err := drive.NewService(ctx, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Gateway{
		svc:      svc,
		folderID: cfg.FolderID,
		fileName: cfg.FileName,
		logger:   logger.With("backend", "drive"),
	}, nil
}

func (g *Gateway) Name() string { return "drive" }

func (g *Gateway) Ready() bool { return g.svc != nil }

func (g *Gateway) Push(ctx context.Context, doc core.BackupData) error {
	payload, err := backup.Marshal(doc)
	if err != nil {
		return err
	}
	id, err := g.lookup(ctx)
	if err != nil {
		return err
	}

	media := googleapi.ContentType("application/json")
	if id != "" {
		_, err = g.svc.Files.Update(id, &drive.File{}).
			Media(bytes.NewReader(payload), media).
			Context(ctx).Do()
		if err == nil {
			return nil
		}
		if !isNotFound(err) {
			return mapErr("update file", err)
		}
		// deleted behind our back; create a new one
		g.forget()
	}

	f := &drive.File{Name: g.fileName, MimeType: "application/json"}
	if g.folderID != "" {
		f.Parents = []string{g.folderID}
	}
	created, err := g.svc.Files.Create(f).
		Media(bytes.NewReader(payload), media).
		Fields("id").
		Context(ctx).Do()
	if err != nil {
		return mapErr("create file", err)
	}
	g.remember(created.Id)
	g.logger.InfoContext(ctx, "Created sync file", "file_id", created.Id, "name", g.fileName)
	return nil
}

func (g *Gateway) Pull(ctx context.Context) (backup.Snapshot, bool, error) {
	id, err := g.lookup(ctx)
	if err != nil {
		return backup.Snapshot{}, false, err
	}
	if id == "" {
		return backup.Snapshot{}, false, nil
	}
	resp, err := g.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		if isNotFound(err) {
			g.forget()
			return backup.Snapshot{}, false, nil
		}
		return backup.Snapshot{}, false, mapErr("download file", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return backup.Snapshot{}, false, fmt.Errorf("read file: %w", err)
	}
	snap, err := gateway.DecodePayload(data)
	if err != nil {
		return backup.Snapshot{}, false, err
	}
	return snap, true, nil
}

// lookup returns the id of the sync file, or "" if it does not exist yet.
func (g *Gateway) lookup(ctx context.Context) (string, error) {
	g.mu.Lock()
	id := g.fileID
	g.mu.Unlock()
	if id != "" {
		return id, nil
	}

	list, err := g.svc.Files.List().
		Q(searchQuery(g.fileName, g.folderID)).
		OrderBy("modifiedTime desc").
		PageSize(1).
		Fields("files(id, name)").
		Context(ctx).Do()
	if err != nil {
		return "", mapErr("list files", err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	g.remember(list.Files[0].Id)
	return list.Files[0].Id, nil
}

func (g *Gateway) remember(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fileID = id
}

func (g *Gateway) forget() {
	g.remember("")
}

func searchQuery(name, folderID string) string {
	q := fmt.Sprintf("name = '%s' and trashed = false", escapeQuery(name))
	if folderID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(folderID))
	}
	return q
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

func mapErr(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden) {
		return fmt.Errorf("%s: %w: %w", op, gateway.ErrNotAuthorized, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
