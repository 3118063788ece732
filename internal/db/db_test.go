package db

import (
	"testing"

	"github.com/jobdesk/jobdesk-backend/internal/config"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			"plain host",
			config.Config{DBUser: "u", DBPassword: "p", DBHost: "db.example.com", DBPort: "3306", DBName: "jobs"},
			"u:p@tcp(db.example.com:3306)/jobs?charset=utf8mb4&parseTime=True&loc=Local",
		},
		{
			"tcp already wrapped",
			config.Config{DBUser: "u", DBPassword: "p", DBHost: "tcp(db:3306)", DBName: "jobs"},
			"u:p@tcp(db:3306)/jobs?charset=utf8mb4&parseTime=True&loc=Local",
		},
		{
			"unix socket path",
			config.Config{DBUser: "u", DBPassword: "p", DBHost: "/var/run/mysqld.sock", DBName: "jobs"},
			"u:p@unix(/var/run/mysqld.sock)/jobs?charset=utf8mb4&parseTime=True&loc=Local",
		},
		{
			"cloud sql instance",
			config.Config{DBUser: "u", DBPassword: "p", DBHost: "ignored", DBName: "jobs", InstanceConnectionName: "proj:region:inst"},
			"u:p@unix(/cloudsql/proj:region:inst)/jobs?charset=utf8mb4&parseTime=True&loc=Local",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildDSN(&tt.cfg); got != tt.want {
				t.Fatalf("got=%q want=%q", got, tt.want)
			}
		})
	}
}
