package stdlib

import (
	"database/sql"
	"fmt"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"sparkling/internal/value"
	"sparkling/internal/vmcore"
)

// RegisterDb installs the DOMAIN STACK's db library (db_open/db_query/
// db_exec), namespaced under "db". Grounded on the teacher's
// internal/database/db_manager.go (DBManager.Connect/Query/Execute):
// the connection-ID-keyed map is replaced by an owning UserInfo handle
// per connection, matching this runtime's object-lifetime model rather
// than the teacher's registry-of-connections design, and db_query's
// row-to-map scanning loop is adapted line-for-line from
// DBManager.Query into Array-of-HashMap Values.
func RegisterDb(vm *vmcore.VM) {
	vm.GetClasses().AddLibCFuncs("db", map[string]value.NativeFn{
		"db_open": func(args []value.Value, _ any) (value.Value, error) {
			kind, err := argString(args, 0, "db_open")
			if err != nil {
				return value.Nil(), err
			}
			dsn, err := argString(args, 1, "db_open")
			if err != nil {
				return value.Nil(), err
			}
			driver, err := driverName(string(value.Bytes(kind)))
			if err != nil {
				return value.Nil(), err
			}
			db, oerr := sql.Open(driver, string(value.Bytes(dsn)))
			if oerr != nil {
				return value.Nil(), fmt.Errorf("db_open: %v", oerr)
			}
			if perr := db.Ping(); perr != nil {
				db.Close()
				return value.Nil(), fmt.Errorf("db_open: %v", perr)
			}
			return value.NewUserInfo(db, func(p any) { p.(*sql.DB).Close() }), nil
		},
		"db_close": func(args []value.Value, _ any) (value.Value, error) {
			db, err := argDB(args, 0, "db_close")
			if err != nil {
				return value.Nil(), err
			}
			if cerr := db.Close(); cerr != nil {
				return value.Nil(), fmt.Errorf("db_close: %v", cerr)
			}
			return value.Int(0), nil
		},
		"db_exec": func(args []value.Value, _ any) (value.Value, error) {
			db, err := argDB(args, 0, "db_exec")
			if err != nil {
				return value.Nil(), err
			}
			query, err := argString(args, 1, "db_exec")
			if err != nil {
				return value.Nil(), err
			}
			params, err := queryParams(args[2:])
			if err != nil {
				return value.Nil(), err
			}
			result, eerr := db.Exec(string(value.Bytes(query)), params...)
			if eerr != nil {
				return value.Nil(), fmt.Errorf("db_exec: %v", eerr)
			}
			affected, _ := result.RowsAffected()
			return value.Int(affected), nil
		},
		"db_query": func(args []value.Value, _ any) (value.Value, error) {
			db, err := argDB(args, 0, "db_query")
			if err != nil {
				return value.Nil(), err
			}
			query, err := argString(args, 1, "db_query")
			if err != nil {
				return value.Nil(), err
			}
			params, err := queryParams(args[2:])
			if err != nil {
				return value.Nil(), err
			}
			return runQuery(db, string(value.Bytes(query)), params)
		},
	})
}

func driverName(kind string) (string, error) {
	switch kind {
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlserver", "mssql":
		return "sqlserver", nil
	default:
		return "", fmt.Errorf("db_open: unsupported database type %q", kind)
	}
}

func argDB(args []value.Value, i int, fn string) (*sql.DB, error) {
	if i >= len(args) || args[i].Kind() != value.TagUserInfo {
		return nil, fmt.Errorf("%s: argument %d must be a database handle", fn, i+1)
	}
	db, ok := value.UserInfoPayload(args[i]).(*sql.DB)
	if !ok {
		return nil, fmt.Errorf("%s: argument %d is not a database handle", fn, i+1)
	}
	return db, nil
}

// queryParams converts script-level bind parameters (Int/Float/String/
// Bool/Nil) to their database/sql equivalents.
func queryParams(args []value.Value) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		switch a.Kind() {
		case value.TagInt:
			out[i] = a.AsInt()
		case value.TagFloat:
			out[i] = a.AsFloat()
		case value.TagBool:
			out[i] = a.AsBool()
		case value.TagString:
			out[i] = string(value.Bytes(a))
		case value.TagNil:
			out[i] = nil
		default:
			return nil, fmt.Errorf("db: argument %d of type %s is not a valid bind parameter", i+1, value.TypeName(a.Kind()))
		}
	}
	return out, nil
}

// runQuery is adapted from DBManager.Query: scan each row into a slice
// of any via pointer placeholders, then convert every column into a
// HashMap keyed by column name, collecting rows into an Array.
func runQuery(db *sql.DB, query string, params []any) (value.Value, error) {
	rows, err := db.Query(query, params...)
	if err != nil {
		return value.Nil(), fmt.Errorf("db_query: %v", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return value.Nil(), fmt.Errorf("db_query: %v", err)
	}

	var out []value.Value
	scanned := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range scanned {
		ptrs[i] = &scanned[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return value.Nil(), fmt.Errorf("db_query: %v", err)
		}
		row := value.NewHashMap()
		for i, col := range columns {
			if err := value.HashMapSetStrKey(row, col, sqlToValue(scanned[i])); err != nil {
				return value.Nil(), err
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return value.Nil(), fmt.Errorf("db_query: %v", err)
	}
	return value.NewArrayFrom(out), nil
}

func sqlToValue(v any) value.Value {
	switch x := v.(type) {
	case nil:
		return value.Nil()
	case []byte:
		return value.NewString(string(x))
	case string:
		return value.NewString(x)
	case int64:
		return value.Int(x)
	case float64:
		return value.Float(x)
	case bool:
		return value.Bool(x)
	default:
		return value.NewString(fmt.Sprintf("%v", x))
	}
}
