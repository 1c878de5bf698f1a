package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/modabuild/fabline/internal/audit/domain"
	auditrepo "github.com/modabuild/fabline/internal/audit/repository"
	auditservice "github.com/modabuild/fabline/internal/audit/service"
	"github.com/modabuild/fabline/internal/clock"
	"github.com/modabuild/fabline/internal/config"
	importservice "github.com/modabuild/fabline/internal/moduleimport/service"
	projectdomain "github.com/modabuild/fabline/internal/project/domain"
	projectrepo "github.com/modabuild/fabline/internal/project/repository"
	projectservice "github.com/modabuild/fabline/internal/project/service"
	sequencedomain "github.com/modabuild/fabline/internal/sequence/domain"
	sequencerepo "github.com/modabuild/fabline/internal/sequence/repository"
	sequenceservice "github.com/modabuild/fabline/internal/sequence/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestServer(t *testing.T, cfg config.Config) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&projectdomain.Project{}, &sequencedomain.Snapshot{}, &auditdomain.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	log := zap.NewNop()
	repo := projectrepo.Provide()
	sequenceSvc := sequenceservice.NewService(sequenceservice.ServiceParam{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       clock.SystemClock{},
		Repo:        sequencerepo.Provide(),
		ProjectRepo: repo,
	})
	projectSvc := projectservice.NewService(projectservice.ServiceParam{
		DB:          db,
		Log:         log,
		GenID:       node,
		Repo:        repo,
		SequenceSvc: sequenceSvc,
	})
	importSvc := importservice.NewService(importservice.ServiceParam{
		DB:          db,
		Log:         log,
		GenID:       node,
		ProjectRepo: repo,
		SequenceSvc: sequenceSvc,
	})
	auditSvc := auditservice.NewService(auditservice.ServiceParam{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clock.SystemClock{},
		Repo:  auditrepo.Provide(),
	})

	engine := gin.New()
	srv := NewServer(ServerParam{
		Config:      cfg,
		DB:          db,
		Log:         log,
		Engine:      engine,
		ProjectSvc:  projectSvc,
		ImportSvc:   importSvc,
		SequenceSvc: sequenceSvc,
		AuditSvc:    auditSvc,
	})
	srv.RegisterAPIRoutes()
	return srv, engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func createProject(t *testing.T, engine *gin.Engine) string {
	t.Helper()
	rec := doJSON(t, engine, http.MethodPost, "/api/projects", `{"code":"TST-01","name":"Test Block"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("create project: status %d body %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if envelope.Data.ID == "" {
		t.Fatalf("create response missing id: %s", rec.Body.String())
	}
	return envelope.Data.ID
}

func TestHealthz(t *testing.T) {
	_, engine := newTestServer(t, config.Config{})
	rec := doJSON(t, engine, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status: %d", rec.Code)
	}
}

func TestCreateProjectDuplicateCodeConflicts(t *testing.T) {
	_, engine := newTestServer(t, config.Config{})
	createProject(t, engine)

	rec := doJSON(t, engine, http.MethodPost, "/api/projects", `{"code":"TST-01","name":"Other"}`, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBearerAuthGuardsAPI(t *testing.T) {
	_, engine := newTestServer(t, config.Config{APIToken: "sekret"})

	rec := doJSON(t, engine, http.MethodGet, "/api/projects", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodGet, "/api/projects", "", map[string]string{
		"Authorization": "Bearer wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong token, got %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodGet, "/api/projects", "", map[string]string{
		"Authorization": "Bearer sekret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
}

func TestGetProjectInvalidID(t *testing.T) {
	_, engine := newTestServer(t, config.Config{})
	rec := doJSON(t, engine, http.MethodGet, "/api/projects/abc/modules", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestImportAnalyzeAndExecute(t *testing.T) {
	_, engine := newTestServer(t, config.Config{})
	projectID := createProject(t, engine)

	body := `{"csv":"serial_number,build_sequence\n26-0001,1\n26-0002,2\n"}`
	rec := doJSON(t, engine, http.MethodPost, "/api/projects/"+projectID+"/import/analyze", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, engine, http.MethodPost, "/api/projects/"+projectID+"/import/execute", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("execute status %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data struct {
			Result struct {
				Created int  `json:"created"`
				Applied bool `json:"applied"`
			} `json:"result"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode execute response: %v", err)
	}
	if !envelope.Data.Result.Applied || envelope.Data.Result.Created != 2 {
		t.Fatalf("unexpected execute result: %s", rec.Body.String())
	}

	rec = doJSON(t, engine, http.MethodGet, "/api/projects/"+projectID+"/sequence/history", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"change_type":"import"`) {
		t.Fatalf("history missing import snapshot: %s", rec.Body.String())
	}
}

func TestImportRequiresCSV(t *testing.T) {
	_, engine := newTestServer(t, config.Config{})
	projectID := createProject(t, engine)

	rec := doJSON(t, engine, http.MethodPost, "/api/projects/"+projectID+"/import/analyze", `{"csv":""}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRestoreUnknownSnapshotIs404(t *testing.T) {
	_, engine := newTestServer(t, config.Config{})
	projectID := createProject(t, engine)

	rec := doJSON(t, engine, http.MethodPost, "/api/projects/"+projectID+"/sequence/restore", `{"snapshot_id":"123456789"}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestImportRateLimit(t *testing.T) {
	_, engine := newTestServer(t, config.Config{ImportRateLimit: 1})
	projectID := createProject(t, engine)

	body := `{"csv":"serial_number\n26-0001\n"}`
	path := "/api/projects/" + projectID + "/import/analyze"

	rec := doJSON(t, engine, http.MethodPost, path, body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, engine, http.MethodPost, path, body, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}
