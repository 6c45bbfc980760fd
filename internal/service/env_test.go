package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hieplh/ata-sample-webapp/config"
	"github.com/hieplh/ata-sample-webapp/internal/model"
	"github.com/hieplh/ata-sample-webapp/internal/repository"
	"github.com/hieplh/ata-sample-webapp/pkg/identity"
	"github.com/hieplh/ata-sample-webapp/pkg/jwt"
	"github.com/hieplh/ata-sample-webapp/pkg/storage"
)

// ── 测试替身 ──

// syncTasks 同步执行后台任务
type syncTasks struct {
	mu    sync.Mutex
	names []string
	errs  []error
}

func (r *syncTasks) Submit(name string, fn func(ctx context.Context) error) error {
	err := fn(context.Background())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.errs = append(r.errs, err)
	return nil
}

type registerCall struct {
	id    string
	files []identity.File
}

type fakeIdentity struct {
	mu        sync.Mutex
	registers []registerCall
	updates   map[string][]identity.ImageUpdate
	deletes   []string
	// recognized 人脸识别返回的身份；为空表示识别失败
	recognized string
	images     map[string][]map[string]interface{}
	listErr    error
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{updates: make(map[string][]identity.ImageUpdate)}
}

func (f *fakeIdentity) Register(_ context.Context, id string, _ interface{}, files []identity.File) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registers = append(f.registers, registerCall{id: id, files: files})
	return nil
}

func (f *fakeIdentity) Update(_ context.Context, id string, images []identity.ImageUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[id] = append(f.updates[id], images...)
	return nil
}

func (f *fakeIdentity) Verify(_ context.Context, id string, _ identity.File) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recognized != id {
		return identity.ErrNotIdentified
	}
	return nil
}

func (f *fakeIdentity) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeIdentity) ListImages(_ context.Context, id string) ([]map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.images[id], nil
}

type sentMail struct {
	email    string
	username string
	otp      int
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) SendActivation(_ context.Context, email, username string, otp int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{email: email, username: username, otp: otp})
	return nil
}

func (m *fakeMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

// ── 测试环境 ──

type testEnv struct {
	cfg      *config.Config
	db       *gorm.DB
	repo     *repository.Repository
	svc      *Service
	jwtMgr   *jwt.Manager
	store    *storage.ImageStore
	identity *fakeIdentity
	mailer   *fakeMailer
	tasks    *syncTasks
	now      time.Time
}

// advance 拨动测试时钟
func (e *testEnv) advance(d time.Duration) { e.now = e.now.Add(d) }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("打开 sqlite 失败: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Department{},
		&model.Permission{},
		&model.Role{},
		&model.RolePermission{},
		&model.UserAccount{},
		&model.ActiveUser{},
		&model.UserToken{},
		&model.UserImage{},
		&model.FormReason{},
		&model.Form{},
		&model.FormDetail{},
	); err != nil {
		t.Fatalf("AutoMigrate 失败: %v", err)
	}

	seed := []interface{}{
		&model.Department{Name: "IT Department"},
		&model.Permission{ID: "READ", Name: "read", Description: "Read"},
		&model.Permission{ID: "WRITE", Name: "write", Description: "Write"},
		&model.FormReason{Name: "Nghỉ phép năm", Productivity: model.Productivity, FormType: model.FormTypeLeaveRequest},
		&model.FormReason{Name: "Nghỉ ốm", Productivity: model.NoProductivity, FormType: model.FormTypeLeaveRequest},
		&model.FormReason{Name: "Quên chấm công", Productivity: model.HalfProductivity, FormType: model.FormTypeAbsentee},
	}
	for _, row := range seed {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("写入种子数据失败: %v", err)
		}
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Auth:         config.AuthConfig{JWTSecret: "unit-test-secret-0123456789", Algorithm: "HS256", TokenTTL: 72 * time.Hour},
		Activation:   config.ActivationConfig{OTPTTL: 24 * time.Hour, MaxAttempts: 3},
		Registration: config.RegistrationConfig{DefaultDepartment: "IT Department", DefaultRole: "developer"},
	}

	store, err := storage.NewImageStore(t.TempDir())
	if err != nil {
		t.Fatalf("创建图片存储失败: %v", err)
	}

	db := newTestDB(t)
	env := &testEnv{
		cfg:      cfg,
		db:       db,
		repo:     repository.NewRepository(db),
		jwtMgr:   jwt.NewManager(&cfg.Auth),
		store:    store,
		identity: newFakeIdentity(),
		mailer:   &fakeMailer{},
		tasks:    &syncTasks{},
		now:      time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	env.svc = NewService(Dependencies{
		Config:   cfg,
		Repo:     env.repo,
		JWT:      env.jwtMgr,
		Images:   store,
		Identity: env.identity,
		Mailer:   env.mailer,
		Tasks:    env.tasks,
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return env.now },
	})
	return env
}

// createUser 直接写入账号
func (e *testEnv) createUser(t *testing.T, username string, status model.UserStatus, twoFactor bool) *model.UserAccount {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt 失败: %v", err)
	}
	dept := "IT Department"
	role := "developer"
	user := &model.UserAccount{
		Username:            username,
		Password:            string(hashed),
		Department:          &dept,
		Role:                &role,
		Firstname:           "First " + username,
		Lastname:            "Last",
		Gender:              "male",
		Email:               username + "@example.com",
		Status:              status,
		Identity:            "ID-" + username,
		IdentityType:        model.IdentityTypeCCCD,
		Enable2Verification: twoFactor,
	}
	if err := e.repo.User.Create(context.Background(), user); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	return user
}

// claimsOf 构造调用方身份
func claimsOf(u *model.UserAccount) *jwt.Claims {
	return &jwt.Claims{
		UserID:     u.ID,
		Username:   u.Username,
		Department: u.DepartmentName(),
		Role:       u.RoleName(),
		Firstname:  u.Firstname,
		Lastname:   u.Lastname,
		Email:      u.Email,
	}
}

// 1x1 PNG
const pngDataURI = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="
