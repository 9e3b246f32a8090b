package repository

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// AnalysisRun represents the analysis_runs table.
type AnalysisRun struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Network        string    `gorm:"column:network;type:varchar(128);index"`
	Command        string    `gorm:"column:command;type:varchar(16)"`
	Source         string    `gorm:"column:source;type:varchar(32)"`
	Estimator      string    `gorm:"column:estimator;type:varchar(32)"`
	Workers        int       `gorm:"column:workers"`
	NumKeys        int64     `gorm:"column:num_keys"`
	Size           int64     `gorm:"column:size"`
	CompressedSize int64     `gorm:"column:compressed_size"`
	Scanned        int64     `gorm:"column:scanned"`
	Matched        int64     `gorm:"column:matched"`
	Subjects       JSONField `gorm:"column:subjects;type:json"`
	ReportPath     string    `gorm:"column:report_path;type:varchar(512)"`
	DurationMs     int64     `gorm:"column:duration_ms"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`

	Categories []AnalysisRunCategory `gorm:"foreignKey:RunID"`
}

// TableName returns the table name for AnalysisRun.
func (AnalysisRun) TableName() string {
	return "analysis_runs"
}

// AnalysisRunCategory represents the analysis_run_categories table.
type AnalysisRunCategory struct {
	ID             int64  `gorm:"column:id;primaryKey;autoIncrement"`
	RunID          int64  `gorm:"column:run_id;index"`
	Name           string `gorm:"column:name;type:varchar(128)"`
	Size           int64  `gorm:"column:size"`
	CompressedSize int64  `gorm:"column:compressed_size"`
	NumKeys        int64  `gorm:"column:num_keys"`
}

// TableName returns the table name for AnalysisRunCategory.
func (AnalysisRunCategory) TableName() string {
	return "analysis_run_categories"
}

// ToModel converts AnalysisRun to Run.
func (r *AnalysisRun) ToModel() (*Run, error) {
	run := &Run{
		ID:             r.ID,
		Network:        r.Network,
		Command:        Command(r.Command),
		Source:         r.Source,
		Estimator:      r.Estimator,
		Workers:        r.Workers,
		NumKeys:        uint64(r.NumKeys),
		Size:           uint64(r.Size),
		CompressedSize: uint64(r.CompressedSize),
		Scanned:        uint64(r.Scanned),
		Matched:        uint64(r.Matched),
		ReportPath:     r.ReportPath,
		Duration:       time.Duration(r.DurationMs) * time.Millisecond,
		CreatedAt:      r.CreatedAt,
	}

	if r.Subjects != nil {
		if err := json.Unmarshal(r.Subjects, &run.Subjects); err != nil {
			return nil, err
		}
	}

	for _, c := range r.Categories {
		run.Categories = append(run.Categories, CategorySummary{
			Name:           c.Name,
			Size:           uint64(c.Size),
			CompressedSize: uint64(c.CompressedSize),
			NumKeys:        uint64(c.NumKeys),
		})
	}
	return run, nil
}

// FromRunModel converts Run to AnalysisRun.
func FromRunModel(run *Run) (*AnalysisRun, error) {
	r := &AnalysisRun{
		ID:             run.ID,
		Network:        run.Network,
		Command:        string(run.Command),
		Source:         run.Source,
		Estimator:      run.Estimator,
		Workers:        run.Workers,
		NumKeys:        int64(run.NumKeys),
		Size:           int64(run.Size),
		CompressedSize: int64(run.CompressedSize),
		Scanned:        int64(run.Scanned),
		Matched:        int64(run.Matched),
		ReportPath:     run.ReportPath,
		DurationMs:     run.Duration.Milliseconds(),
		CreatedAt:      run.CreatedAt,
	}

	if run.Subjects != nil {
		data, err := json.Marshal(run.Subjects)
		if err != nil {
			return nil, err
		}
		r.Subjects = data
	}

	for _, c := range run.Categories {
		r.Categories = append(r.Categories, AnalysisRunCategory{
			Name:           c.Name,
			Size:           int64(c.Size),
			CompressedSize: int64(c.CompressedSize),
			NumKeys:        int64(c.NumKeys),
		})
	}
	return r, nil
}

// JSONField is a JSON column stored as raw bytes.
type JSONField []byte

// Value implements driver.Valuer.
func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner.
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append((*j)[:0], v...)
	case string:
		*j = []byte(v)
	default:
		return errors.New("unsupported type for JSONField")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (j JSONField) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (j *JSONField) UnmarshalJSON(data []byte) error {
	*j = append((*j)[:0], data...)
	return nil
}
