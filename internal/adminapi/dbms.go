package adminapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	gbytes "github.com/labstack/gommon/bytes"
	"github.com/maudia1/site/internal/domain"
	"github.com/maudia1/site/internal/webserver"
	"gorm.io/gorm"
)

// DBMSTableInfo represents table metadata
type DBMSTableInfo struct {
	Name     string `json:"name"`
	RowCount int64  `json:"rowCount"`
}

// DBMSServerInfo describes the database backing the catalog
type DBMSServerInfo struct {
	DatabaseType    string `json:"databaseType"`
	DatabaseVersion string `json:"databaseVersion"`
	DatabaseSize    string `json:"databaseSize,omitempty"`
	TableCount      int    `json:"tableCount"`
	ServerTime      string `json:"serverTime"`
}

func registerDbmsRoutes() {
	webserver.AdminGET("/admin/dbms/tables", dbmsListTables)
	webserver.AdminGET("/admin/dbms/serverinfo", dbmsGetServerInfo)
}

func tableName(db *gorm.DB, model interface{}) (string, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return "", err
	}
	return stmt.Schema.Table, nil
}

// dbmsListTables returns the application tables with their row counts
func dbmsListTables(c echo.Context) error {
	db := GetDB(c).WithContext(c.Request().Context())
	tables := make([]DBMSTableInfo, 0, len(domain.Tables))
	for _, model := range domain.Tables {
		name, err := tableName(db, model)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "server_error", "Unable to read schema", err.Error())
		}
		var count int64
		if err := db.Model(model).Count(&count).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "server_error", "Unable to count rows", err.Error())
		}
		tables = append(tables, DBMSTableInfo{Name: name, RowCount: count})
	}
	return ok(c, tables)
}

func dbmsGetServerInfo(c echo.Context) error {
	db := GetDB(c).WithContext(c.Request().Context())
	dbType := db.Dialector.Name()

	info := DBMSServerInfo{
		DatabaseType: dbType,
		TableCount:   len(domain.Tables),
		ServerTime:   time.Now().Format("2006-01-02 15:04:05"),
	}

	switch dbType {
	case "postgres":
		var version, size string
		db.Raw("SELECT version()").Scan(&version)
		db.Raw("SELECT pg_size_pretty(pg_database_size(current_database()))").Scan(&size)
		info.DatabaseVersion = version
		info.DatabaseSize = size
	case "sqlite":
		var version string
		db.Raw("SELECT sqlite_version()").Scan(&version)
		info.DatabaseVersion = "SQLite " + version

		var pageCount, pageSize int64
		db.Raw("PRAGMA page_count").Scan(&pageCount)
		db.Raw("PRAGMA page_size").Scan(&pageSize)
		info.DatabaseSize = gbytes.Format(pageCount * pageSize)
	default:
		info.DatabaseVersion = fmt.Sprintf("%s (unknown)", dbType)
	}
	return ok(c, info)
}
