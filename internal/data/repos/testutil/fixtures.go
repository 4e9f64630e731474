package testutil

import (
	"context"
	"testing"

	"gorm.io/gorm"

	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/domain/builds"
)

func SeedSpec(tb testing.TB, ctx context.Context, tx *gorm.DB, name, fullHash, spackVersion string) *types.Spec {
	tb.Helper()
	s := &types.Spec{Name: name, FullHash: fullHash, SpackVersion: spackVersion, Version: "1.0"}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed spec: %v", err)
	}
	return s
}

func SeedBuildEnvironment(tb testing.TB, ctx context.Context, tx *gorm.DB, hostname string) *types.BuildEnvironment {
	tb.Helper()
	e := &types.BuildEnvironment{
		Hostname:      hostname,
		KernelVersion: "#1 SMP 5.10",
		HostOS:        "ubuntu20.04",
		HostTarget:    "skylake",
		Platform:      "linux",
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed build environment: %v", err)
	}
	return e
}

func SeedBuild(tb testing.TB, ctx context.Context, tx *gorm.DB, specID, envID int64, status string) *types.Build {
	tb.Helper()
	if status == "" {
		status = builds.StatusNotRun
	}
	b := &types.Build{SpecID: specID, BuildEnvironmentID: envID, Status: status}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed build: %v", err)
	}
	return b
}

func SeedDependency(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID, depID int64, depType string) *types.Dependency {
	tb.Helper()
	d := &types.Dependency{SpecID: ownerID, DependencySpecID: depID, DependencyType: depType}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed dependency: %v", err)
	}
	return d
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, username, tokenHash string) *types.User {
	tb.Helper()
	u := &types.User{Username: username, TokenHash: tokenHash, IsActive: true}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}
