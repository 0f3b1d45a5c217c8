package service

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/issue-tracker/internal/auth"
	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/persistence"
	"github.com/spec-kit/issue-tracker/internal/repository/sqlite"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

type testEnv struct {
	store    *sqlite.Store
	tokens   *auth.TokenManager
	auth     *AuthService
	projects *ProjectService
	issues   *IssueService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, err := persistence.NewSQLite(ctx, filepath.Join(t.TempDir(), "tracker.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(db.Close)
	if err := persistence.RunSQLiteMigrations(ctx, db.DB, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := sqlite.New(db.DB)

	tokens, err := auth.NewTokenManager("test-secret", "HS256", 30*time.Minute)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	authService, err := NewAuthService(AuthDependencies{
		UserRepo: store,
		Hasher:   auth.NewPasswordHasher(bcrypt.MinCost),
		Tokens:   tokens,
	})
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	return &testEnv{
		store:    store,
		tokens:   tokens,
		auth:     authService,
		projects: NewProjectService(store),
		issues:   NewIssueService(IssueDependencies{ProjectRepo: store, IssueRepo: store}),
	}
}

func (e *testEnv) signup(t *testing.T, email string) *domain.User {
	t.Helper()
	user, err := e.auth.Signup(context.Background(), email, "pw")
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	return user
}

func strPtr(s string) *string { return &s }

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", status)
	}
	if got := apperrors.ToDomainError(err).HTTPStatus; got != status {
		t.Fatalf("expected status %d, got %d (%v)", status, got, err)
	}
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.signup(t, "a@x.com")

	_, err := env.auth.Signup(ctx, "a@x.com", "different")
	assertStatus(t, err, http.StatusBadRequest)
	if !apperrors.IsKind(err, "CONFLICT") {
		t.Fatalf("expected conflict, got %v", err)
	}

	stored, err := env.store.FindUserByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if stored.ID != first.ID {
		t.Fatal("duplicate signup replaced the account")
	}
	if stored.PasswordHash == "pw" {
		t.Fatal("password stored in plaintext")
	}
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Signup(ctx, "", "pw")
	assertStatus(t, err, http.StatusBadRequest)
	_, err = env.auth.Signup(ctx, "a@x.com", "")
	assertStatus(t, err, http.StatusBadRequest)
}

func TestLoginIssuesTokenForEmail(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "a@x.com")

	token, exp, err := env.auth.Login(context.Background(), "a@x.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatalf("expiry in the past: %s", exp)
	}
	subject, err := env.tokens.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if subject != "a@x.com" {
		t.Fatalf("unexpected subject %q", subject)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "a@x.com")
	ctx := context.Background()

	_, _, wrongPassword := env.auth.Login(ctx, "a@x.com", "nope")
	_, _, unknownEmail := env.auth.Login(ctx, "ghost@x.com", "pw")

	assertStatus(t, wrongPassword, http.StatusUnauthorized)
	assertStatus(t, unknownEmail, http.StatusUnauthorized)
	a := apperrors.ToDomainError(wrongPassword)
	b := apperrors.ToDomainError(unknownEmail)
	if a.Code != b.Code || a.Message != b.Message {
		t.Fatalf("login failures differ: %+v vs %+v", a, b)
	}
}

func TestProjectCRUDIsOwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "alice@x.com")
	bob := env.signup(t, "bob@x.com")

	project, err := env.projects.CreateProject(ctx, alice, ProjectCreateInput{Title: "  T  ", Description: strPtr("d")})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if project.OwnerID != alice.ID || project.Title != "T" {
		t.Fatalf("unexpected project: %+v", project)
	}

	_, err = env.projects.GetProject(ctx, bob, project.ID)
	assertStatus(t, err, http.StatusNotFound)
	assertStatus(t, env.projects.DeleteProject(ctx, bob, project.ID), http.StatusNotFound)

	bobProjects, err := env.projects.ListProjects(ctx, bob)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bobProjects) != 0 {
		t.Fatalf("bob sees alice's projects: %+v", bobProjects)
	}

	got, err := env.projects.GetProject(ctx, alice, project.ID)
	if err != nil || got.ID != project.ID {
		t.Fatalf("owner get: %+v, %v", got, err)
	}
	if err := env.projects.DeleteProject(ctx, alice, project.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	_, err = env.projects.GetProject(ctx, alice, project.ID)
	assertStatus(t, err, http.StatusNotFound)
}

func TestCreateProjectRequiresTitle(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice@x.com")

	_, err := env.projects.CreateProject(context.Background(), alice, ProjectCreateInput{Title: "   "})
	assertStatus(t, err, http.StatusBadRequest)
}

func TestTextLimitsCountCharacters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "alice@x.com")

	title := strings.Repeat("é", maxTextLength)
	project, err := env.projects.CreateProject(ctx, alice, ProjectCreateInput{Title: title})
	if err != nil {
		t.Fatalf("multibyte title at the limit rejected: %v", err)
	}
	if project.Title != title {
		t.Fatalf("title not stored intact: %q", project.Title)
	}
	_, err = env.projects.CreateProject(ctx, alice, ProjectCreateInput{Title: title + "é"})
	assertStatus(t, err, http.StatusBadRequest)

	assignee := strings.Repeat("ü", maxTextLength)
	issue, err := env.issues.CreateIssue(ctx, alice, project.ID, domain.IssueFields{Title: "日本語のタイトル", Assignee: &assignee})
	if err != nil {
		t.Fatalf("multibyte assignee at the limit rejected: %v", err)
	}
	tooLongAssignee := assignee + "ü"
	_, err = env.issues.UpdateIssue(ctx, alice, issue.ID, domain.IssuePatch{Assignee: domain.Some(&tooLongAssignee)})
	assertStatus(t, err, http.StatusBadRequest)

	email := strings.Repeat("ñ", maxTextLength-6) + "@x.com"
	if _, err := env.auth.Signup(ctx, email, "pw"); err != nil {
		t.Fatalf("multibyte email at the limit rejected: %v", err)
	}
}

func TestIssueAccessIsTransitive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "alice@x.com")
	bob := env.signup(t, "bob@x.com")

	project, err := env.projects.CreateProject(ctx, alice, ProjectCreateInput{Title: "P"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	issue, err := env.issues.CreateIssue(ctx, alice, project.ID, domain.IssueFields{Title: "I1"})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}

	_, err = env.issues.ListIssues(ctx, bob, project.ID)
	assertStatus(t, err, http.StatusNotFound)
	_, err = env.issues.CreateIssue(ctx, bob, project.ID, domain.IssueFields{Title: "intruder"})
	assertStatus(t, err, http.StatusNotFound)
	_, err = env.issues.UpdateIssue(ctx, bob, issue.ID, domain.IssuePatch{Title: domain.Some("hijacked")})
	assertStatus(t, err, http.StatusNotFound)
	assertStatus(t, env.issues.DeleteIssue(ctx, bob, issue.ID), http.StatusNotFound)

	foreign := apperrors.ToDomainError(env.issues.DeleteIssue(ctx, bob, issue.ID))
	missing := apperrors.ToDomainError(env.issues.DeleteIssue(ctx, bob, "00000000-0000-0000-0000-000000000000"))
	if foreign.Code != missing.Code || foreign.Message != missing.Message {
		t.Fatalf("foreign and missing issues are distinguishable: %+v vs %+v", foreign, missing)
	}

	issues, err := env.issues.ListIssues(ctx, alice, project.ID)
	if err != nil {
		t.Fatalf("owner list: %v", err)
	}
	if len(issues) != 1 || issues[0].Title != "I1" {
		t.Fatalf("intruder changed issues: %+v", issues)
	}
}

func TestUpdateIssuePartial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "alice@x.com")
	project, err := env.projects.CreateProject(ctx, alice, ProjectCreateInput{Title: "P"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	issue, err := env.issues.CreateIssue(ctx, alice, project.ID, domain.IssueFields{Title: "I1", Assignee: strPtr("sam")})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}
	if issue.Status != domain.IssueStatusTodo || issue.Priority != domain.IssuePriorityMedium {
		t.Fatalf("unexpected defaults: %+v", issue)
	}

	updated, err := env.issues.UpdateIssue(ctx, alice, issue.ID, domain.IssuePatch{Status: domain.Some(domain.IssueStatusDone)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.IssueStatusDone || updated.Priority != domain.IssuePriorityMedium ||
		updated.Title != "I1" || updated.Assignee == nil || *updated.Assignee != "sam" || updated.ProjectID != project.ID {
		t.Fatalf("unexpected update result: %+v", updated)
	}
}

func TestUpdateIssueRejectsInvalidValues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "alice@x.com")
	project, _ := env.projects.CreateProject(ctx, alice, ProjectCreateInput{Title: "P"})
	issue, err := env.issues.CreateIssue(ctx, alice, project.ID, domain.IssueFields{Title: "I1"})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}

	cases := []domain.IssuePatch{
		{Title: domain.Some("")},
		{Status: domain.Some(domain.IssueStatus("Closed"))},
		{Priority: domain.Some(domain.IssuePriority(""))},
	}
	for _, patch := range cases {
		_, err := env.issues.UpdateIssue(ctx, alice, issue.ID, patch)
		assertStatus(t, err, http.StatusBadRequest)
	}
}

func TestDeleteProjectRemovesIssues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "alice@x.com")
	project, _ := env.projects.CreateProject(ctx, alice, ProjectCreateInput{Title: "P"})
	issue, err := env.issues.CreateIssue(ctx, alice, project.ID, domain.IssueFields{Title: "I1"})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}

	if err := env.projects.DeleteProject(ctx, alice, project.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	_, err = env.issues.ListIssues(ctx, alice, project.ID)
	assertStatus(t, err, http.StatusNotFound)
	_, err = env.issues.UpdateIssue(ctx, alice, issue.ID, domain.IssuePatch{Title: domain.Some("ghost")})
	assertStatus(t, err, http.StatusNotFound)

	remaining, err := env.store.ListIssues(ctx, project.ID)
	if err != nil {
		t.Fatalf("list issues: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("orphan issues remain: %+v", remaining)
	}
}
