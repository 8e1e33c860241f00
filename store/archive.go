// Package store persists batch results: per-game Parquet archives and a
// SQLite ledger of batch summaries.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/chainreaction/runner"
)

const archiveSchema = "chainreaction_game_v1"

// GameRow is a single finished game.
//
// Players holds the strategy name of every seat; Winner indexes into it.
type GameRow struct {
	BatchID string   `parquet:"batch_id,dict"`
	GameID  int32    `parquet:"game_id"`
	Width   int32    `parquet:"width"`
	Height  int32    `parquet:"height"`
	Players []string `parquet:"players"`

	Winner     int32 `parquet:"winner"`
	WinnerMass int32 `parquet:"winner_mass"`
	Moves      int32 `parquet:"moves"`

	Explosions     int32 `parquet:"explosions"`
	Captures       int32 `parquet:"captures"`
	CapturedMass   int32 `parquet:"captured_mass"`
	LongestCascade int32 `parquet:"longest_cascade"`

	DurationUs int64 `parquet:"duration_us"`
}

// NewGameRow converts a runner record into an archive row.
func NewGameRow(batchID string, width, height int, players []string, rec runner.GameRecord) GameRow {
	return GameRow{
		BatchID:        batchID,
		GameID:         int32(rec.ID),
		Width:          int32(width),
		Height:         int32(height),
		Players:        append([]string(nil), players...),
		Winner:         int32(rec.Winner),
		WinnerMass:     int32(rec.Mass),
		Moves:          int32(rec.Moves),
		Explosions:     int32(rec.Stats.Explosions),
		Captures:       int32(rec.Stats.Captures),
		CapturedMass:   int32(rec.Stats.CapturedMass),
		LongestCascade: int32(rec.Stats.LongestCascade),
		DurationUs:     rec.Duration.Microseconds(),
	}
}

// ArchiveWriter streams game rows into outDir/tmp and moves the finished
// file into outDir on Finalize, so readers never observe a partial file.
type ArchiveWriter struct {
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[GameRow]

	rows int
}

func NewArchiveWriter(outDir string) (*ArchiveWriter, error) {
	if outDir == "" {
		return nil, fmt.Errorf("outDir is required")
	}

	absOut, err := filepath.Abs(outDir)
	if err != nil {
		absOut = outDir
	}
	tmpDir := filepath.Join(absOut, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("games_%d.parquet", time.Now().UnixNano())
	tmpPath := filepath.Join(tmpDir, name)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}

	w := parquet.NewGenericWriter[GameRow](f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", archiveSchema)

	return &ArchiveWriter{
		tmpPath: tmpPath,
		outPath: filepath.Join(absOut, name),
		file:    f,
		writer:  w,
	}, nil
}

func (a *ArchiveWriter) OutPath() string { return a.outPath }
func (a *ArchiveWriter) Rows() int       { return a.rows }

func (a *ArchiveWriter) Write(rows ...GameRow) error {
	if a.writer == nil {
		return fmt.Errorf("archive writer is closed")
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := a.writer.Write(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	a.rows += len(rows)
	return nil
}

// Finalize closes the writer and publishes the file. With no rows written the
// temporary file is removed and the returned path is empty.
func (a *ArchiveWriter) Finalize() (string, int, error) {
	if a.writer == nil {
		return "", 0, nil
	}

	closeErr := a.writer.Close()
	a.writer = nil
	_ = a.file.Sync()
	fileErr := a.file.Close()
	a.file = nil

	if closeErr != nil {
		_ = os.Remove(a.tmpPath)
		return "", 0, fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		_ = os.Remove(a.tmpPath)
		return "", 0, fmt.Errorf("close parquet file: %w", fileErr)
	}

	if a.rows == 0 {
		_ = os.Remove(a.tmpPath)
		return "", 0, nil
	}
	if err := os.Rename(a.tmpPath, a.outPath); err != nil {
		return "", 0, fmt.Errorf("rename parquet: %w", err)
	}
	return a.outPath, a.rows, nil
}

// ReadArchive loads every row of an archive file.
func ReadArchive(path string) ([]GameRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	reader := parquet.NewGenericReader[GameRow](pf)
	defer reader.Close()

	rows := make([]GameRow, reader.NumRows())
	read := 0
	for read < len(rows) {
		n, err := reader.Read(rows[read:])
		read += n
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet %s: %w", path, err)
		}
	}
	return rows[:read], nil
}
