package database

import (
	"context"
	"fmt"

	annotation "entgo.io/ent/dialect/entsql"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table names
const (
	TasksTableName     = "tasks"
	PausesTableName    = "task_pauses"
	EventsTableName    = "task_events"
	SnapshotsTableName = "task_snapshots"
)

var (
	// TasksColumns holds the columns for the "tasks" table.
	TasksColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "user_id", Type: field.TypeUUID},
		{Name: "account_id", Type: field.TypeUUID},
		{Name: "title", Type: field.TypeString, Size: 200},
		{Name: "description", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "priority", Type: field.TypeEnum, Enums: []string{"low", "medium", "high"}, Default: "low"},
		{Name: "status", Type: field.TypeEnum, Enums: []string{"pending", "in_progress", "paused", "completed"}, Default: "pending"},
		{Name: "due_at", Type: field.TypeTime, Nullable: true},
		{Name: "total_working_time", Type: field.TypeInt64, Default: 0},
		{Name: "pause_count", Type: field.TypeInt, Default: 0},
		{Name: "started_at", Type: field.TypeTime, Nullable: true},
		{Name: "last_resumed_at", Type: field.TypeTime, Nullable: true},
		{Name: "completed_at", Type: field.TypeTime, Nullable: true},
		{Name: "version", Type: field.TypeInt64, Default: 1},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// TasksTable holds the schema information for the "tasks" table.
	TasksTable = &schema.Table{
		Name:       TasksTableName,
		Columns:    TasksColumns,
		PrimaryKey: []*schema.Column{TasksColumns[0]},
		Indexes: []*schema.Index{
			{Name: "task_account_id_user_id", Columns: []*schema.Column{TasksColumns[2], TasksColumns[1]}},
			{Name: "task_status", Columns: []*schema.Column{TasksColumns[6]}},
			{Name: "task_due_at", Columns: []*schema.Column{TasksColumns[7]}},
		},
	}

	// PausesColumns holds the columns for the "task_pauses" table.
	PausesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "paused_at", Type: field.TypeTime},
		{Name: "resumed_at", Type: field.TypeTime, Nullable: true},
		{Name: "work_duration", Type: field.TypeInt64, Default: 0},
		{Name: "reason", Type: field.TypeString, Size: 255},
		{Name: "comment", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "progress_percentage", Type: field.TypeInt, Default: 0},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "task_id", Type: field.TypeUUID},
	}
	// PausesTable holds the schema information for the "task_pauses" table.
	PausesTable = &schema.Table{
		Name:       PausesTableName,
		Columns:    PausesColumns,
		PrimaryKey: []*schema.Column{PausesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "task_pauses_tasks_pauses",
				Columns:    []*schema.Column{PausesColumns[9]},
				RefColumns: []*schema.Column{TasksColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "taskpause_task_id_paused_at", Columns: []*schema.Column{PausesColumns[9], PausesColumns[1]}},
			{Name: "taskpause_reason", Columns: []*schema.Column{PausesColumns[4]}},
			// At most one open pause per task.
			{
				Name:       "taskpause_task_id_active",
				Unique:     true,
				Columns:    []*schema.Column{PausesColumns[9]},
				Annotation: &annotation.IndexAnnotation{Where: "resumed_at IS NULL"},
			},
		},
	}

	// EventsColumns holds the columns for the "task_events" table.
	EventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "subject_type", Type: field.TypeEnum, Enums: []string{"task", "pause"}},
		{Name: "subject_id", Type: field.TypeUUID},
		{Name: "event_type", Type: field.TypeEnum, Enums: []string{"started", "paused", "resumed", "completed"}},
		{Name: "metadata", Type: field.TypeJSON},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "task_id", Type: field.TypeUUID},
	}
	// EventsTable holds the schema information for the "task_events" table.
	EventsTable = &schema.Table{
		Name:       EventsTableName,
		Columns:    EventsColumns,
		PrimaryKey: []*schema.Column{EventsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "task_events_tasks_events",
				Columns:    []*schema.Column{EventsColumns[6]},
				RefColumns: []*schema.Column{TasksColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "taskevent_task_id_created_at", Columns: []*schema.Column{EventsColumns[6], EventsColumns[5]}},
			{Name: "taskevent_event_type", Columns: []*schema.Column{EventsColumns[3]}},
			{Name: "taskevent_subject_type_subject_id", Columns: []*schema.Column{EventsColumns[1], EventsColumns[2]}},
		},
	}

	// SnapshotsColumns holds the columns for the "task_snapshots" table.
	SnapshotsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "subject_type", Type: field.TypeEnum, Enums: []string{"task", "pause"}},
		{Name: "subject_id", Type: field.TypeUUID},
		{Name: "snapshot_type", Type: field.TypeEnum, Enums: []string{"pause", "resume", "milestone"}},
		{Name: "progress_at_snapshot", Type: field.TypeInt, Nullable: true},
		{Name: "total_time_at_snapshot", Type: field.TypeInt64, Default: 0},
		{Name: "state_data", Type: field.TypeJSON},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "task_id", Type: field.TypeUUID},
	}
	// SnapshotsTable holds the schema information for the "task_snapshots" table.
	SnapshotsTable = &schema.Table{
		Name:       SnapshotsTableName,
		Columns:    SnapshotsColumns,
		PrimaryKey: []*schema.Column{SnapshotsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "task_snapshots_tasks_snapshots",
				Columns:    []*schema.Column{SnapshotsColumns[8]},
				RefColumns: []*schema.Column{TasksColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "tasksnapshot_task_id_created_at", Columns: []*schema.Column{SnapshotsColumns[8], SnapshotsColumns[7]}},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		TasksTable,
		PausesTable,
		EventsTable,
		SnapshotsTable,
	}
)

func init() {
	PausesTable.ForeignKeys[0].RefTable = TasksTable
	EventsTable.ForeignKeys[0].RefTable = TasksTable
	SnapshotsTable.ForeignKeys[0].RefTable = TasksTable
}

// Migrate creates or updates every table of the schema.
func (db *DB) Migrate(ctx context.Context) error {
	drv := entsql.OpenDB(db.Dialect, db.DB.DB)
	migrate, err := schema.NewMigrate(
		drv,
		schema.WithDropIndex(true),
		schema.WithDropColumn(true),
		schema.WithForeignKeys(true),
	)
	if err != nil {
		return fmt.Errorf("create migrate: %w", err)
	}
	if err := migrate.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("run auto migration: %w", err)
	}
	return nil
}
