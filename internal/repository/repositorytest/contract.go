// Package repositorytest holds a behavioral suite shared by every repository backend.
package repositorytest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/repository"
)

// Repositories bundles the three repositories of one backend.
type Repositories struct {
	Users    repository.UserRepository
	Projects repository.ProjectRepository
	Issues   repository.IssueRepository
}

// Factory returns repositories over a fresh, empty schema.
type Factory func(t *testing.T) Repositories

// Run exercises the repository contract against the backend built by factory.
func Run(t *testing.T, factory Factory) {
	tests := []struct {
		name string
		fn   func(*testing.T, Repositories)
	}{
		{"CreateUserRejectsDuplicateEmail", testCreateUserRejectsDuplicateEmail},
		{"FindUserByEmailIsExact", testFindUserByEmailIsExact},
		{"ProjectsAreOwnerScoped", testProjectsAreOwnerScoped},
		{"DeleteProjectCascadesIssues", testDeleteProjectCascadesIssues},
		{"CreateIssueDefaults", testCreateIssueDefaults},
		{"GetIssueWithProject", testGetIssueWithProject},
		{"UpdateIssueAppliesOnlySetFields", testUpdateIssueAppliesOnlySetFields},
		{"UpdateIssueMissing", testUpdateIssueMissing},
		{"DeleteIssue", testDeleteIssue},
		{"ConcurrentSignupCreatesOneUser", testConcurrentSignupCreatesOneUser},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, factory(t))
		})
	}
}

func strPtr(s string) *string { return &s }

func mustUser(t *testing.T, repos Repositories, email string) *domain.User {
	t.Helper()
	user, err := repos.Users.CreateUser(context.Background(), email, "hash:"+email)
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func mustProject(t *testing.T, repos Repositories, ownerID, title string) *domain.Project {
	t.Helper()
	project, err := repos.Projects.CreateProject(context.Background(), title, nil, ownerID)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

func mustIssue(t *testing.T, repos Repositories, projectID, title string) *domain.Issue {
	t.Helper()
	issue, err := repos.Issues.CreateIssue(context.Background(), projectID, domain.IssueFields{Title: title})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}
	return issue
}

func testCreateUserRejectsDuplicateEmail(t *testing.T, repos Repositories) {
	ctx := context.Background()
	first := mustUser(t, repos, "a@x.com")
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at, got %+v", first)
	}

	_, err := repos.Users.CreateUser(ctx, "a@x.com", "other")
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	stored, err := repos.Users.FindUserByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if stored.ID != first.ID || stored.PasswordHash != "hash:a@x.com" {
		t.Fatalf("duplicate signup modified the account: %+v", stored)
	}
}

func testFindUserByEmailIsExact(t *testing.T, repos Repositories) {
	ctx := context.Background()
	mustUser(t, repos, "Case@X.com")

	if _, err := repos.Users.FindUserByEmail(ctx, "case@x.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for different case, got %v", err)
	}
	if _, err := repos.Users.FindUserByEmail(ctx, "nobody@x.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testProjectsAreOwnerScoped(t *testing.T, repos Repositories) {
	ctx := context.Background()
	alice := mustUser(t, repos, "alice@x.com")
	bob := mustUser(t, repos, "bob@x.com")

	created, err := repos.Projects.CreateProject(ctx, "Alpha", strPtr("first"), alice.ID)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if created.OwnerID != alice.ID || created.Description == nil || *created.Description != "first" {
		t.Fatalf("unexpected project: %+v", created)
	}
	mustProject(t, repos, alice.ID, "Beta")
	mustProject(t, repos, bob.ID, "Gamma")

	aliceProjects, err := repos.Projects.ListProjects(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(aliceProjects) != 2 {
		t.Fatalf("expected 2 projects for alice, got %d", len(aliceProjects))
	}
	for _, p := range aliceProjects {
		if p.OwnerID != alice.ID {
			t.Fatalf("foreign project listed: %+v", p)
		}
	}

	got, err := repos.Projects.GetProject(ctx, created.ID, alice.ID)
	if err != nil || got.ID != created.ID || got.Title != "Alpha" {
		t.Fatalf("get own project: %+v, %v", got, err)
	}
	if _, err := repos.Projects.GetProject(ctx, created.ID, bob.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign project, got %v", err)
	}

	deleted, err := repos.Projects.DeleteProject(ctx, created.ID, bob.ID)
	if err != nil || deleted {
		t.Fatalf("foreign delete must report false: %v, %v", deleted, err)
	}
	if _, err := repos.Projects.GetProject(ctx, created.ID, alice.ID); err != nil {
		t.Fatalf("project removed by foreign delete: %v", err)
	}

	empty, err := repos.Projects.ListProjects(ctx, "00000000-0000-0000-0000-000000000000")
	if err != nil {
		t.Fatalf("list for unknown owner: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no projects, got %d", len(empty))
	}
}

func testDeleteProjectCascadesIssues(t *testing.T, repos Repositories) {
	ctx := context.Background()
	owner := mustUser(t, repos, "owner@x.com")
	doomed := mustProject(t, repos, owner.ID, "Doomed")
	kept := mustProject(t, repos, owner.ID, "Kept")
	first := mustIssue(t, repos, doomed.ID, "one")
	mustIssue(t, repos, doomed.ID, "two")
	survivor := mustIssue(t, repos, kept.ID, "three")

	deleted, err := repos.Projects.DeleteProject(ctx, doomed.ID, owner.ID)
	if err != nil || !deleted {
		t.Fatalf("delete project: %v, %v", deleted, err)
	}

	issues, err := repos.Issues.ListIssues(ctx, doomed.ID)
	if err != nil {
		t.Fatalf("list issues: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected cascade, %d issues remain", len(issues))
	}
	if _, _, err := repos.Issues.GetIssueWithProject(ctx, first.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected orphan lookup to fail, got %v", err)
	}
	if _, _, err := repos.Issues.GetIssueWithProject(ctx, survivor.ID); err != nil {
		t.Fatalf("issue of other project removed: %v", err)
	}

	again, err := repos.Projects.DeleteProject(ctx, doomed.ID, owner.ID)
	if err != nil || again {
		t.Fatalf("second delete must report false: %v, %v", again, err)
	}
}

func testCreateIssueDefaults(t *testing.T, repos Repositories) {
	ctx := context.Background()
	owner := mustUser(t, repos, "owner@x.com")
	project := mustProject(t, repos, owner.ID, "P")

	issue := mustIssue(t, repos, project.ID, "I1")
	if issue.Status != domain.IssueStatusTodo || issue.Priority != domain.IssuePriorityMedium {
		t.Fatalf("unexpected defaults: %+v", issue)
	}
	if issue.ProjectID != project.ID || issue.Description != nil || issue.Assignee != nil {
		t.Fatalf("unexpected issue: %+v", issue)
	}

	explicit, err := repos.Issues.CreateIssue(ctx, project.ID, domain.IssueFields{
		Title:       "I2",
		Description: strPtr("details"),
		Status:      domain.IssueStatusInProgress,
		Priority:    domain.IssuePriorityHigh,
		Assignee:    strPtr("someone"),
	})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}

	issues, err := repos.Issues.ListIssues(ctx, project.ID)
	if err != nil {
		t.Fatalf("list issues: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
	var stored domain.Issue
	for _, candidate := range issues {
		if candidate.ID == explicit.ID {
			stored = candidate
		}
	}
	if stored.Status != domain.IssueStatusInProgress || stored.Priority != domain.IssuePriorityHigh ||
		stored.Assignee == nil || *stored.Assignee != "someone" ||
		stored.Description == nil || *stored.Description != "details" {
		t.Fatalf("explicit fields not persisted: %+v", stored)
	}
}

func testGetIssueWithProject(t *testing.T, repos Repositories) {
	ctx := context.Background()
	owner := mustUser(t, repos, "owner@x.com")
	project := mustProject(t, repos, owner.ID, "P")
	issue := mustIssue(t, repos, project.ID, "I")

	gotIssue, gotProject, err := repos.Issues.GetIssueWithProject(ctx, issue.ID)
	if err != nil {
		t.Fatalf("get issue: %v", err)
	}
	if gotIssue.ID != issue.ID || gotIssue.Title != "I" {
		t.Fatalf("unexpected issue: %+v", gotIssue)
	}
	if gotProject.ID != project.ID || gotProject.OwnerID != owner.ID || gotProject.Title != "P" {
		t.Fatalf("unexpected project: %+v", gotProject)
	}

	if _, _, err := repos.Issues.GetIssueWithProject(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testUpdateIssueAppliesOnlySetFields(t *testing.T, repos Repositories) {
	ctx := context.Background()
	owner := mustUser(t, repos, "owner@x.com")
	project := mustProject(t, repos, owner.ID, "P")
	issue, err := repos.Issues.CreateIssue(ctx, project.ID, domain.IssueFields{
		Title:       "Original",
		Description: strPtr("keep me"),
		Assignee:    strPtr("sam"),
	})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}

	updated, err := repos.Issues.UpdateIssue(ctx, issue.ID, domain.IssuePatch{
		Status: domain.Some(domain.IssueStatusDone),
	})
	if err != nil {
		t.Fatalf("update issue: %v", err)
	}
	if updated.Status != domain.IssueStatusDone {
		t.Fatalf("status not updated: %q", updated.Status)
	}
	if updated.Priority != domain.IssuePriorityMedium || updated.Title != "Original" ||
		updated.Description == nil || *updated.Description != "keep me" ||
		updated.Assignee == nil || *updated.Assignee != "sam" ||
		updated.ProjectID != project.ID || !updated.CreatedAt.Equal(issue.CreatedAt) {
		t.Fatalf("unset fields changed: %+v", updated)
	}

	cleared, err := repos.Issues.UpdateIssue(ctx, issue.ID, domain.IssuePatch{
		Title:    domain.Some("Renamed"),
		Assignee: domain.Some[*string](nil),
	})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if cleared.Title != "Renamed" || cleared.Assignee != nil || cleared.Status != domain.IssueStatusDone {
		t.Fatalf("unexpected second update: %+v", cleared)
	}

	unchanged, err := repos.Issues.UpdateIssue(ctx, issue.ID, domain.IssuePatch{})
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if unchanged.Title != "Renamed" {
		t.Fatalf("empty patch changed issue: %+v", unchanged)
	}
}

func testUpdateIssueMissing(t *testing.T, repos Repositories) {
	ctx := context.Background()
	missing := "00000000-0000-0000-0000-000000000000"
	if _, err := repos.Issues.UpdateIssue(ctx, missing, domain.IssuePatch{Title: domain.Some("x")}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repos.Issues.UpdateIssue(ctx, missing, domain.IssuePatch{}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty patch, got %v", err)
	}
}

func testDeleteIssue(t *testing.T, repos Repositories) {
	ctx := context.Background()
	owner := mustUser(t, repos, "owner@x.com")
	project := mustProject(t, repos, owner.ID, "P")
	issue := mustIssue(t, repos, project.ID, "I")

	deleted, err := repos.Issues.DeleteIssue(ctx, issue.ID)
	if err != nil || !deleted {
		t.Fatalf("delete issue: %v, %v", deleted, err)
	}
	deleted, err = repos.Issues.DeleteIssue(ctx, issue.ID)
	if err != nil || deleted {
		t.Fatalf("second delete must report false: %v, %v", deleted, err)
	}
	if _, err := repos.Projects.GetProject(ctx, project.ID, owner.ID); err != nil {
		t.Fatalf("deleting an issue removed its project: %v", err)
	}
}

func testConcurrentSignupCreatesOneUser(t *testing.T, repos Repositories) {
	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repos.Users.CreateUser(context.Background(), "race@x.com", "hash")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, repository.ErrConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one successful signup, got %d", succeeded)
	}
}
