package introspect

import (
	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
)

// Every query returns one row per column with the same lowercase aliases:
// table_name, column_name, data_type, is_nullable, column_default,
// max_length, is_primary, referenced_table, referenced_column.
var columnQueries = map[dbcapabilities.DatabaseID]string{
	dbcapabilities.MySQL: `
		SELECT
			c.table_name AS table_name,
			c.column_name AS column_name,
			c.data_type AS data_type,
			c.is_nullable AS is_nullable,
			c.column_default AS column_default,
			c.character_maximum_length AS max_length,
			CASE WHEN c.column_key = 'PRI' THEN 1 ELSE 0 END AS is_primary,
			k.referenced_table_name AS referenced_table,
			k.referenced_column_name AS referenced_column
		FROM information_schema.columns c
		JOIN information_schema.tables t
			ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		LEFT JOIN information_schema.key_column_usage k
			ON k.table_schema = c.table_schema
			AND k.table_name = c.table_name
			AND k.column_name = c.column_name
			AND k.referenced_table_name IS NOT NULL
		WHERE c.table_schema = DATABASE()
		AND t.table_type = 'BASE TABLE'
		ORDER BY c.table_name, c.ordinal_position`,

	dbcapabilities.PostgreSQL: `
		SELECT
			c.table_name AS table_name,
			c.column_name AS column_name,
			c.data_type AS data_type,
			c.is_nullable AS is_nullable,
			c.column_default AS column_default,
			c.character_maximum_length AS max_length,
			CASE WHEN pk.column_name IS NULL THEN 0 ELSE 1 END AS is_primary,
			fk.referenced_table AS referenced_table,
			fk.referenced_column AS referenced_column
		FROM information_schema.columns c
		JOIN information_schema.tables t
			ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		LEFT JOIN (
			SELECT kcu.table_schema, kcu.table_name, kcu.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
		) pk ON pk.table_schema = c.table_schema AND pk.table_name = c.table_name AND pk.column_name = c.column_name
		LEFT JOIN (
			SELECT kcu.table_schema, kcu.table_name, kcu.column_name,
				ccu.table_name AS referenced_table, ccu.column_name AS referenced_column
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
			JOIN information_schema.constraint_column_usage ccu
				ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
			WHERE tc.constraint_type = 'FOREIGN KEY'
		) fk ON fk.table_schema = c.table_schema AND fk.table_name = c.table_name AND fk.column_name = c.column_name
		WHERE c.table_schema = current_schema()
		AND t.table_type = 'BASE TABLE'
		ORDER BY c.table_name, c.ordinal_position`,

	dbcapabilities.SQLServer: `
		SELECT
			c.TABLE_NAME AS table_name,
			c.COLUMN_NAME AS column_name,
			c.DATA_TYPE AS data_type,
			c.IS_NULLABLE AS is_nullable,
			c.COLUMN_DEFAULT AS column_default,
			c.CHARACTER_MAXIMUM_LENGTH AS max_length,
			CASE WHEN pk.COLUMN_NAME IS NULL THEN 0 ELSE 1 END AS is_primary,
			fk.referenced_table AS referenced_table,
			fk.referenced_column AS referenced_column
		FROM INFORMATION_SCHEMA.COLUMNS c
		JOIN INFORMATION_SCHEMA.TABLES t
			ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
		LEFT JOIN (
			SELECT ku.TABLE_SCHEMA, ku.TABLE_NAME, ku.COLUMN_NAME
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE ku
				ON ku.CONSTRAINT_NAME = tc.CONSTRAINT_NAME AND ku.TABLE_SCHEMA = tc.TABLE_SCHEMA
			WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
		) pk ON pk.TABLE_SCHEMA = c.TABLE_SCHEMA AND pk.TABLE_NAME = c.TABLE_NAME AND pk.COLUMN_NAME = c.COLUMN_NAME
		LEFT JOIN (
			SELECT
				OBJECT_SCHEMA_NAME(f.parent_object_id) AS table_schema,
				OBJECT_NAME(f.parent_object_id) AS table_name,
				COL_NAME(f.parent_object_id, f.parent_column_id) AS column_name,
				OBJECT_NAME(f.referenced_object_id) AS referenced_table,
				COL_NAME(f.referenced_object_id, f.referenced_column_id) AS referenced_column
			FROM sys.foreign_key_columns f
		) fk ON fk.table_schema = c.TABLE_SCHEMA AND fk.table_name = c.TABLE_NAME AND fk.column_name = c.COLUMN_NAME
		WHERE c.TABLE_SCHEMA = SCHEMA_NAME()
		AND t.TABLE_TYPE = 'BASE TABLE'
		ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION`,

	dbcapabilities.Oracle: `
		SELECT
			c.table_name AS table_name,
			c.column_name AS column_name,
			c.data_type AS data_type,
			CASE WHEN c.nullable = 'Y' THEN 'YES' ELSE 'NO' END AS is_nullable,
			c.data_default AS column_default,
			c.char_length AS max_length,
			CASE WHEN pk.column_name IS NULL THEN 0 ELSE 1 END AS is_primary,
			fk.referenced_table AS referenced_table,
			fk.referenced_column AS referenced_column
		FROM user_tab_columns c
		JOIN user_tables t ON t.table_name = c.table_name
		LEFT JOIN (
			SELECT cc.table_name, cc.column_name
			FROM user_constraints uc
			JOIN user_cons_columns cc ON cc.constraint_name = uc.constraint_name
			WHERE uc.constraint_type = 'P'
		) pk ON pk.table_name = c.table_name AND pk.column_name = c.column_name
		LEFT JOIN (
			SELECT cc.table_name, cc.column_name,
				rc.table_name AS referenced_table, rc.column_name AS referenced_column
			FROM user_constraints uc
			JOIN user_cons_columns cc ON cc.constraint_name = uc.constraint_name
			JOIN user_cons_columns rc ON rc.constraint_name = uc.r_constraint_name AND rc.position = cc.position
			WHERE uc.constraint_type = 'R'
		) fk ON fk.table_name = c.table_name AND fk.column_name = c.column_name
		ORDER BY c.table_name, c.column_id`,
}

// ColumnQuery returns the column discovery query for an engine.
func ColumnQuery(engine dbcapabilities.DatabaseID) (string, bool) {
	q, ok := columnQueries[engine]
	return q, ok
}
