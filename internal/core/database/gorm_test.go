package database

import (
	"errors"
	"testing"

	mysqldrv "github.com/go-sql-driver/mysql"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		user     string
		pass     string
		wantUser string
		wantPass string
		wantAddr string
		wantDB   string
	}{
		{"native", "root:pw@tcp(127.0.0.1:3306)/docs", "", "", "root", "pw", "127.0.0.1:3306", "docs"},
		{"url", "mysql://app:secret@db:3306/docs?useSSL=false", "", "", "app", "secret", "db:3306", "docs"},
		{"jdbc", "jdbc:mysql://db:3306/docs?user=jdbc&password=x&characterEncoding=utf8", "", "", "jdbc", "x", "db:3306", "docs"},
		{"override", "mysql://app:secret@db:3306/docs", "ops", "rotated", "ops", "rotated", "db:3306", "docs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := NormalizeMySQLDSN(tt.in, tt.user, tt.pass)
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			cfg, err := mysqldrv.ParseDSN(dsn)
			if err != nil {
				t.Fatalf("parse %q: %v", dsn, err)
			}
			if cfg.User != tt.wantUser || cfg.Passwd != tt.wantPass {
				t.Errorf("credentials = %s/%s", cfg.User, cfg.Passwd)
			}
			if cfg.Addr != tt.wantAddr || cfg.DBName != tt.wantDB {
				t.Errorf("addr/db = %s/%s", cfg.Addr, cfg.DBName)
			}
			if !cfg.ParseTime {
				t.Error("parseTime not enabled")
			}
		})
	}

	if _, err := NormalizeMySQLDSN("  ", "", ""); err == nil {
		t.Error("empty dsn accepted")
	}
}

func TestMaskDSN(t *testing.T) {
	got := MaskDSN("root:pw@tcp(127.0.0.1:3306)/docs")
	if got != "root:****@tcp(127.0.0.1:3306)/docs" {
		t.Fatalf("got %s", got)
	}
	if MaskDSN("file::memory:") != "file::memory:" {
		t.Fatal("dsn without credentials changed")
	}
}

func TestNewGormSQLite(t *testing.T) {
	db, err := NewGorm(Opts{Driver: "sqlite", DSN: "file::memory:", MaxOpenConns: 1, MaxIdleConns: 1, LogLevel: "silent"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	defer sqlDB.Close()
	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestNewGormUnsupported(t *testing.T) {
	if _, err := NewGorm(Opts{Driver: "oracle"}); !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("got %v", err)
	}
}
