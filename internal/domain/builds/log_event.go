package builds

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// LogEvent is the shared shape of parsed build errors and warnings.
type LogEvent struct {
	SourceFile   string `gorm:"column:source_file;size:500" json:"source_file,omitempty"`
	SourceLineNo *int   `gorm:"column:source_line_no" json:"source_line_no,omitempty"`
	LineNo       *int   `gorm:"column:line_no" json:"line_no,omitempty"`
	RepeatCount  *int   `gorm:"column:repeat_count" json:"repeat_count,omitempty"`
	StartLine    *int   `gorm:"column:start" json:"start,omitempty"`
	EndLine      *int   `gorm:"column:end" json:"end,omitempty"`
	Text         string `gorm:"column:text;type:text;not null" json:"text"`
	PreContext   string `gorm:"column:pre_context;type:text" json:"pre_context,omitempty"`
	PostContext  string `gorm:"column:post_context;type:text" json:"post_context,omitempty"`
}

// Fingerprint hashes every field so identical events collapse into one row.
func (e LogEvent) Fingerprint() string {
	intStr := func(p *int) string {
		if p == nil {
			return "-"
		}
		return strconv.Itoa(*p)
	}
	parts := []string{
		e.SourceFile, intStr(e.SourceLineNo), intStr(e.LineNo), intStr(e.RepeatCount),
		intStr(e.StartLine), intStr(e.EndLine), e.Text, e.PreContext, e.PostContext,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

type BuildError struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BuildPhaseID int64     `gorm:"column:build_phase_id;not null;uniqueIndex:uk_build_error,priority:1" json:"build_phase_id"`
	Fingerprint  string    `gorm:"column:fingerprint;size:64;not null;uniqueIndex:uk_build_error,priority:2" json:"-"`
	LogEvent     `gorm:"embedded"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (BuildError) TableName() string { return "build_errors" }

type BuildWarning struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BuildPhaseID int64     `gorm:"column:build_phase_id;not null;uniqueIndex:uk_build_warning,priority:1" json:"build_phase_id"`
	Fingerprint  string    `gorm:"column:fingerprint;size:64;not null;uniqueIndex:uk_build_warning,priority:2" json:"-"`
	LogEvent     `gorm:"embedded"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (BuildWarning) TableName() string { return "build_warnings" }
