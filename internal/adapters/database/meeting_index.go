// Package database implements the meeting index on an embedded SQLite
// database through GORM.
package database

import (
	"context"
	"database/sql"
	"math"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"meetingindex.app/internal/core/meeting"
	"meetingindex.app/internal/ports"
	"meetingindex.app/pkg/errors"
)

// mathDriverName is a sqlite3 driver variant that registers the trig
// functions the distance query needs. The stock driver only ships them
// behind the sqlite_math_functions build tag.
const mathDriverName = "sqlite3_meetingindex"

var registerMathDriver sync.Once

func registerSqliteMathFunctions() {
	sql.Register(mathDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc("ASIN", math.Asin, true); err != nil {
				return err
			}
			if err := conn.RegisterFunc("SQRT", math.Sqrt, true); err != nil {
				return err
			}
			return conn.RegisterFunc("COS", math.Cos, true)
		},
	})
}

// haversineSearchQuery computes the great-circle distance in kilometers
// between the search center and every meeting. SQLite resolves the distance
// alias inside WHERE, so the radius filter reuses the computed column.
const haversineSearchQuery = `SELECT (12742 * ASIN(SQRT(0.5 - COS((latitude - @lat) * 0.017453292519943295) / 2.0 + COS(@lat * 0.017453292519943295) * COS(latitude * 0.017453292519943295) * (1.0 - COS((longitude - @long) * 0.017453292519943295)) / 2.0))) as distance, * FROM meetings WHERE distance < @distance ORDER BY distance`

const plainSearchQuery = `SELECT NULL as distance, * FROM meetings`

// MeetingModel is the GORM model for one indexed meeting
type MeetingModel struct {
	ID        uint    `gorm:"primaryKey"`
	Name      string  `gorm:"not null"`
	Org       string  `gorm:"not null"`
	Notes     *string
	Source    string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Email *string
	Phone *string

	Latitude      *float64 `gorm:"index"`
	Longitude     *float64 `gorm:"index"`
	LocationName  *string
	LocationNotes *string
	Country       *string
	Region        *string
	Address       *string

	OnlineURL   *string `gorm:"column:online_url"`
	OnlineNotes *string
	IsOnline    bool `gorm:"column:online;not null"`

	Day      *int
	Hour     *int
	Minute   *int
	Duration *int64
}

// TableName specifies the table name for MeetingModel
func (MeetingModel) TableName() string {
	return "meetings"
}

// MeetingIndexAdapter implements the MeetingIndex port using GORM. Imports
// stage their writes in a transaction, so readers keep seeing the previous
// snapshot until Commit.
type MeetingIndexAdapter struct {
	db     *gorm.DB
	logger ports.Logger

	// importMu serializes imports; search is unaffected
	importMu sync.Mutex
}

// NewMeetingIndexAdapter opens (and migrates) the index database at the
// given path
func NewMeetingIndexAdapter(path string, logger ports.Logger) (*MeetingIndexAdapter, error) {
	registerMathDriver.Do(registerSqliteMathFunctions)

	db, err := gorm.Open(sqlite.Dialector{DriverName: mathDriverName, DSN: path}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.NewDatabaseError("failed to open meeting index database", err)
	}

	if err := db.AutoMigrate(&MeetingModel{}); err != nil {
		return nil, errors.NewDatabaseError("failed to migrate meeting index schema", err)
	}

	return &MeetingIndexAdapter{db: db, logger: logger}, nil
}

// BeginImport opens a staging transaction on the index
func (a *MeetingIndexAdapter) BeginImport(ctx context.Context) (ports.MeetingImport, error) {
	a.importMu.Lock()

	tx := a.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		a.importMu.Unlock()
		return nil, errors.NewDatabaseError("failed to begin import transaction", tx.Error)
	}

	return &meetingImportTx{tx: tx, release: a.importMu.Unlock}, nil
}

// Search returns the committed meetings matching opts. Rows the domain model
// cannot represent are skipped, not fatal.
func (a *MeetingIndexAdapter) Search(ctx context.Context, opts ports.SearchOptions) ([]meeting.SearchMeeting, error) {
	var rows []meetingRow
	var result *gorm.DB

	if opts.Distance != nil {
		result = a.db.WithContext(ctx).Raw(haversineSearchQuery, map[string]interface{}{
			"lat":      opts.Distance.Latitude,
			"long":     opts.Distance.Longitude,
			"distance": opts.Distance.Distance,
		}).Scan(&rows)
	} else {
		result = a.db.WithContext(ctx).Raw(plainSearchQuery).Scan(&rows)
	}
	if result.Error != nil {
		return nil, errors.NewDatabaseError("failed to search meetings", result.Error)
	}

	meetings := make([]meeting.SearchMeeting, 0, len(rows))
	for _, row := range rows {
		found, err := row.toSearchMeeting()
		if err != nil {
			a.logger.Warn("Skipping unreadable index row",
				ports.F("source", row.Source),
				ports.F("error", err))
			continue
		}
		meetings = append(meetings, found)
	}

	return meetings, nil
}

// Close closes the underlying database connection
func (a *MeetingIndexAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return errors.NewDatabaseError("failed to get underlying database connection", err)
	}
	if err := sqlDB.Close(); err != nil {
		return errors.NewDatabaseError("failed to close meeting index database", err)
	}
	return nil
}

// meetingImportTx is one open staging transaction
type meetingImportTx struct {
	tx      *gorm.DB
	release func()
	done    bool
	count   int
}

// RemoveOld clears the previous snapshot inside the transaction
func (i *meetingImportTx) RemoveOld(ctx context.Context) error {
	if result := i.tx.WithContext(ctx).Exec("DELETE FROM meetings"); result.Error != nil {
		return errors.NewDatabaseError("failed to clear previous snapshot", result.Error)
	}
	return nil
}

// Add stages a batch of meetings
func (i *meetingImportTx) Add(ctx context.Context, meetings []meeting.Meeting) error {
	if len(meetings) == 0 {
		return nil
	}

	models := make([]MeetingModel, len(meetings))
	for idx, m := range meetings {
		models[idx] = meetingToModel(m)
	}

	if result := i.tx.WithContext(ctx).CreateInBatches(models, 100); result.Error != nil {
		return errors.NewDatabaseError("failed to stage meetings", result.Error)
	}

	i.count += len(meetings)
	return nil
}

// Count returns the number of meetings staged so far
func (i *meetingImportTx) Count() int {
	return i.count
}

// Commit publishes the staged snapshot
func (i *meetingImportTx) Commit(ctx context.Context) error {
	if i.done {
		return errors.NewDatabaseError("import already finished", nil)
	}
	i.done = true
	defer i.release()

	if err := i.tx.WithContext(ctx).Commit().Error; err != nil {
		return errors.NewDatabaseError("failed to commit import", err)
	}
	return nil
}

// Rollback discards the staged snapshot, keeping the previous one
func (i *meetingImportTx) Rollback() error {
	if i.done {
		return nil
	}
	i.done = true
	defer i.release()

	if err := i.tx.Rollback().Error; err != nil {
		return errors.NewDatabaseError("failed to roll back import", err)
	}
	return nil
}

func meetingToModel(m meeting.Meeting) MeetingModel {
	model := MeetingModel{
		Name:          m.Name,
		Org:           m.Org.String(),
		Notes:         m.Notes,
		Source:        m.Source,
		UpdatedAt:     m.UpdatedAt,
		Email:         m.Contact.Email,
		Phone:         m.Contact.Phone,
		LocationName:  m.Location.Name,
		LocationNotes: m.Location.Notes,
		Country:       m.Location.Country,
		Region:        m.Location.Region,
		Address:       m.Location.Address,
		OnlineURL:     m.OnlineOptions.URL,
		OnlineNotes:   m.OnlineOptions.Notes,
		IsOnline:      m.OnlineOptions.IsOnline,
		Duration:      m.Duration,
	}

	if m.Location.Position != nil {
		model.Latitude = &m.Location.Position.Latitude
		model.Longitude = &m.Location.Position.Longitude
	}

	if m.Time.Recurring != nil {
		day := m.Time.Recurring.Day.Index()
		model.Day = &day
		model.Hour = &m.Time.Recurring.Hour
		model.Minute = &m.Time.Recurring.Minute
	}

	return model
}

// meetingRow is the scan target of the search queries: the meeting columns
// plus the computed distance
type meetingRow struct {
	Distance *float64

	Name      string
	Org       string
	Notes     *string
	Source    string
	UpdatedAt time.Time

	Email *string
	Phone *string

	Latitude      *float64
	Longitude     *float64
	LocationName  *string
	LocationNotes *string
	Country       *string
	Region        *string
	Address       *string

	OnlineURL   *string `gorm:"column:online_url"`
	OnlineNotes *string
	IsOnline    bool `gorm:"column:online"`

	Day      *int
	Hour     *int
	Minute   *int
	Duration *int64
}

func (r meetingRow) toSearchMeeting() (meeting.SearchMeeting, error) {
	org, err := meeting.ParseOrganization(r.Org)
	if err != nil {
		return meeting.SearchMeeting{}, err
	}

	var meetingTime meeting.MeetingTime
	if r.Day != nil && r.Hour != nil && r.Minute != nil {
		day, err := meeting.WeekDayFromIndex(*r.Day)
		if err != nil {
			return meeting.SearchMeeting{}, err
		}
		meetingTime = meeting.RecurringOn(day, *r.Hour, *r.Minute)
	}

	var position *meeting.Position
	if r.Latitude != nil && r.Longitude != nil {
		p := meeting.NewPosition(*r.Latitude, *r.Longitude)
		position = &p
	}

	return meeting.SearchMeeting{
		Distance: r.Distance,
		Meeting: meeting.Meeting{
			Name:      r.Name,
			Org:       org,
			Notes:     r.Notes,
			Source:    r.Source,
			UpdatedAt: r.UpdatedAt,
			Contact: meeting.Contact{
				Email: r.Email,
				Phone: r.Phone,
			},
			Location: meeting.Location{
				Position: position,
				Name:     r.LocationName,
				Notes:    r.LocationNotes,
				Country:  r.Country,
				Region:   r.Region,
				Address:  r.Address,
			},
			OnlineOptions: meeting.OnlineOptions{
				URL:      r.OnlineURL,
				Notes:    r.OnlineNotes,
				IsOnline: r.IsOnline,
			},
			Time:     meetingTime,
			Duration: r.Duration,
		},
	}, nil
}
