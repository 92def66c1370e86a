package ddl

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// parquetSerDe is the Hive SerDe used to read the partition files.
const parquetSerDe = "org.apache.hadoop.hive.ql.io.parquet.serde.ParquetHiveSerDe"

// QueryAPI is the subset of the Athena client the registrar needs.
type QueryAPI interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
}

// Registrar issues the external-table DDL sequence against the query
// service. Each statement is submitted and polled to a terminal state before
// the next one starts; a non-success terminal state aborts the run with the
// service's reported reason.
type Registrar struct {
	client         QueryAPI
	workGroup      string
	resultLocation string
	pollInterval   time.Duration
}

// NewRegistrar builds a registrar. resultLocation is the S3 prefix Athena
// writes query results to; pollInterval defaults to 2s.
func NewRegistrar(client QueryAPI, workGroup, resultLocation string, pollInterval time.Duration) *Registrar {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Registrar{
		client:         client,
		workGroup:      workGroup,
		resultLocation: resultLocation,
		pollInterval:   pollInterval,
	}
}

// Register runs the full DDL sequence: ensure the database exists, drop any
// stale table so schema changes apply cleanly, create the external table
// over the dataset location, then discover all date partitions.
func (r *Registrar) Register(ctx context.Context, database, table, columns, location string) error {
	log := zap.L().With(
		zap.String("component", "ddl.registrar"),
		zap.String("database", database),
		zap.String("table", table),
	)

	statements := []struct {
		name string
		sql  string
	}{
		{"create database", CreateDatabaseSQL(database)},
		{"drop table", DropTableSQL(database, table)},
		{"create external table", CreateExternalTableSQL(database, table, columns, location)},
		{"repair partitions", RepairTableSQL(database, table)},
	}

	for _, s := range statements {
		log.Info("executing DDL statement", zap.String("statement", s.name))
		if err := r.execute(ctx, s.sql); err != nil {
			return eris.Wrapf(err, "ddl: %s", s.name)
		}
	}

	log.Info("external table registered", zap.String("location", location))
	return nil
}

// execute submits one statement and polls it to a terminal state. Queued and
// running states are in-progress, not failures.
func (r *Registrar) execute(ctx context.Context, sql string) error {
	input := &athena.StartQueryExecutionInput{
		QueryString: aws.String(sql),
	}
	if r.workGroup != "" {
		input.WorkGroup = aws.String(r.workGroup)
	}
	if r.resultLocation != "" {
		input.ResultConfiguration = &types.ResultConfiguration{
			OutputLocation: aws.String(r.resultLocation),
		}
	}

	started, err := r.client.StartQueryExecution(ctx, input)
	if err != nil {
		return eris.Wrap(err, "submit statement")
	}
	queryID := aws.ToString(started.QueryExecutionId)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		out, err := r.client.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(queryID),
		})
		if err != nil {
			return eris.Wrapf(err, "poll query %s", queryID)
		}

		status := out.QueryExecution.Status
		switch status.State {
		case types.QueryExecutionStateSucceeded:
			return nil
		case types.QueryExecutionStateFailed, types.QueryExecutionStateCancelled:
			reason := "no reason reported"
			if status.StateChangeReason != nil {
				reason = *status.StateChangeReason
			}
			return eris.Errorf("query %s %s: %s", queryID, status.State, reason)
		}

		select {
		case <-ctx.Done():
			return eris.Wrapf(ctx.Err(), "waiting on query %s", queryID)
		case <-ticker.C:
		}
	}
}

// CreateDatabaseSQL returns the idempotent database creation statement.
func CreateDatabaseSQL(database string) string {
	return fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database)
}

// DropTableSQL returns the idempotent table drop statement.
func DropTableSQL(database, table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s.%s", database, table)
}

// CreateExternalTableSQL returns the external table creation statement with
// date declared as a string-typed partition key. The partition column is
// quoted: date is a reserved word in the DDL dialect.
func CreateExternalTableSQL(database, table, columns, location string) string {
	return fmt.Sprintf(
		"CREATE EXTERNAL TABLE IF NOT EXISTS %s.%s (%s) "+
			"PARTITIONED BY (`date` STRING) "+
			"ROW FORMAT SERDE '%s' "+
			"STORED AS PARQUET "+
			"LOCATION '%s'",
		database, table, columns, parquetSerDe, location,
	)
}

// RepairTableSQL returns the full partition discovery statement.
func RepairTableSQL(database, table string) string {
	return fmt.Sprintf("MSCK REPAIR TABLE %s.%s", database, table)
}
