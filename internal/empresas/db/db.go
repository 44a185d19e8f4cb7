package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	dbmodels "github.com/gartstein/empresas/internal/empresas/db/models"
	e "github.com/gartstein/empresas/internal/empresas/errors"
	"github.com/gartstein/empresas/internal/empresas/models"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Repository struct {
	db            *gorm.DB
	table         string
	profilesTable string
}

type Config struct {
	Driver        string
	Host          string
	Port          int
	User          string
	Password      string
	DBName        string
	SSLMode       string
	Path          string
	Table         string
	ProfilesTable string
	// Migrate also creates the companies table. Users, profiles and
	// sessions are owned by the service and always migrated.
	Migrate bool
}

// Query selects company rows. Columns are physical names, so the caller
// decides which naming convention a query runs under.
type Query struct {
	// OrderBy sorts ascending by this column; empty leaves rows unordered.
	OrderBy string
	// SearchColumn and Term filter to rows whose column contains Term,
	// ignoring case. An empty Term disables the filter.
	SearchColumn string
	Term         string
	Offset       int
	Limit        int
	// Count requests the exact number of rows matching the filter.
	Count bool
}

// Page is one result window of a Query.
type Page struct {
	Rows []map[string]interface{}
	// Total is nil unless the query asked for a count.
	Total *int64
}

func NewRepository(cfg *Config) (*Repository, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	default:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &Repository{db: db, table: cfg.Table, profilesTable: cfg.ProfilesTable}
	if err := repo.Migrate(context.Background(), cfg.Migrate); err != nil {
		return nil, err
	}
	return repo, nil
}

// Migrate creates the service-owned tables, and the companies table when
// withCompanies is set.
func (r *Repository) Migrate(ctx context.Context, withCompanies bool) error {
	tx := r.db.WithContext(ctx)
	if err := tx.AutoMigrate(&dbmodels.User{}, &dbmodels.Session{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := tx.Table(r.profilesTable).AutoMigrate(&dbmodels.Profile{}); err != nil {
		return fmt.Errorf("failed to migrate profiles: %w", err)
	}
	if withCompanies {
		if err := tx.Table(r.table).AutoMigrate(&dbmodels.Company{}); err != nil {
			return fmt.Errorf("failed to migrate companies: %w", err)
		}
	}
	return nil
}

// SelectCompanies runs q against the companies table.
func (r *Repository) SelectCompanies(ctx context.Context, q Query) (*Page, error) {
	tx := r.db.WithContext(ctx).Table(r.table)
	if q.Term != "" {
		tx = tx.Where(clause.Expr{
			SQL:  "LOWER(?) LIKE ?",
			Vars: []interface{}{clause.Column{Name: q.SearchColumn}, "%" + strings.ToLower(q.Term) + "%"},
		})
	}
	base := tx.Session(&gorm.Session{})

	page := &Page{}
	if q.Count {
		var total int64
		if err := base.Count(&total).Error; err != nil {
			return nil, err
		}
		page.Total = &total
	}

	find := base
	if q.OrderBy != "" {
		find = find.Order(clause.OrderByColumn{Column: clause.Column{Name: q.OrderBy}})
	}
	if q.Offset > 0 {
		find = find.Offset(q.Offset)
	}
	if q.Limit > 0 {
		find = find.Limit(q.Limit)
	}

	var rows []map[string]interface{}
	if err := find.Find(&rows).Error; err != nil {
		return nil, err
	}
	page.Rows = rows
	return page, nil
}

// InsertCompanies inserts rows in a single statement.
func (r *Repository) InsertCompanies(ctx context.Context, rows []map[string]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Table(r.table).Create(rows).Error
}

// DeleteCompaniesWhereNotNull deletes every row whose column is not null.
// It fails when the column does not exist.
func (r *Repository) DeleteCompaniesWhereNotNull(ctx context.Context, column string) (int64, error) {
	result := r.db.WithContext(ctx).Exec("DELETE FROM ? WHERE ? IS NOT NULL",
		clause.Table{Name: r.table}, clause.Column{Name: column})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *Repository) CreateUser(ctx context.Context, email, passwordHash string) (uuid.UUID, error) {
	user := &dbmodels.User{ID: uuid.New(), Email: normalizeEmail(email), PasswordHash: passwordHash}
	result := r.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return uuid.Nil, fmt.Errorf("%w: email already registered", e.ErrInvalidInput)
		}
		return uuid.Nil, result.Error
	}
	return user.ID, nil
}

// GetUserByEmail returns the user id and password hash for email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (uuid.UUID, string, error) {
	var user dbmodels.User
	result := r.db.WithContext(ctx).First(&user, "email = ?", normalizeEmail(email))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return uuid.Nil, "", e.ErrNotFound
		}
		return uuid.Nil, "", result.Error
	}
	return user.ID, user.PasswordHash, nil
}

// Emails are stored lowercased so lookups ignore case.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *Repository) UpsertProfile(ctx context.Context, profile models.Profile) error {
	row := dbmodels.Profile{ID: profile.ID, IsAdmin: profile.IsAdmin}
	return r.db.WithContext(ctx).Table(r.profilesTable).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_admin"}),
		}).
		Create(&row).Error
}

// GetProfile fetches the admin flag for a user id.
func (r *Repository) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var row dbmodels.Profile
	result := r.db.WithContext(ctx).Table(r.profilesTable).
		Select("id", "is_admin").
		Where("id = ?", id).
		Take(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &models.Profile{ID: row.ID, IsAdmin: row.IsAdmin}, nil
}

func (r *Repository) CreateSession(ctx context.Context, userID uuid.UUID, expiresAt time.Time) (uuid.UUID, error) {
	row := &dbmodels.Session{ID: uuid.New(), UserID: userID, ExpiresAt: expiresAt.UTC()}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return uuid.Nil, err
	}
	return row.ID, nil
}

type sessionRow struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Email     string
	ExpiresAt time.Time
}

// GetSession returns a session that has not expired, joined with its user.
func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var row sessionRow
	result := r.db.WithContext(ctx).Table("sessions").
		Select("sessions.id, sessions.user_id, users.email, sessions.expires_at").
		Joins("JOIN users ON users.id = sessions.user_id").
		Where("sessions.id = ? AND sessions.expires_at > ?", id, time.Now().UTC()).
		Limit(1).
		Scan(&row)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, e.ErrNotFound
	}
	return &models.Session{ID: row.ID, UserID: row.UserID, Email: row.Email, ExpiresAt: row.ExpiresAt}, nil
}

func (r *Repository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&dbmodels.Session{}, "id = ?", id).Error
}

// DeleteExpiredSessions removes sessions past their expiry.
func (r *Repository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", time.Now().UTC()).Delete(&dbmodels.Session{})
	return result.RowsAffected, result.Error
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx, table: r.table, profilesTable: r.profilesTable})
	})
}

// Exec runs a raw statement, for schema setup outside the gorm models.
func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	return r.db.WithContext(ctx).Exec(query, params...).Error
}

func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
