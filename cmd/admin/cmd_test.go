package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/englishlessons/lessons-hub/config"
	"github.com/englishlessons/lessons-hub/internal/application/command"
	"github.com/englishlessons/lessons-hub/internal/domain/shared"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
	"github.com/englishlessons/lessons-hub/internal/infrastructure/persistence"
	"github.com/englishlessons/lessons-hub/internal/infrastructure/security"
	"github.com/englishlessons/lessons-hub/pkg/logger"
)

const testSecret = "admin-cli-test-secret-admin-cli-test-secret"

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	store, err := persistence.Open(context.Background(), config.DatabaseConfig{Driver: config.DriverMemory}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(store.Close)

	out := &bytes.Buffer{}
	return &commandLine{
		store:    store,
		accounts: command.NewCreateAccountHandler(store.Students, nil, security.NewBcryptHasher(4), logger.Nop()),
		tokens:   security.NewTokenManager(testSecret, "lessons-hub-test", time.Hour),
		out:      out,
	}, out
}

func mockPassword(t *testing.T, pwd string, err error) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), err }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	password   string
	wantErr    error
	wantErrStr string
}

func Test_commandLine_usage(t *testing.T) {
	tests := []cliTest{
		{name: "no command", args: nil, wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "create-teacher: no username", args: []string{"create-teacher"}, wantErr: errHelp},
		{name: "create-teacher: unknown flag", args: []string{"create-teacher", "-role", "x"}, wantErr: errHelp},
		{name: "token: no username", args: []string{"token"}, wantErr: errHelp},
		{name: "migrate: both flags", args: []string{"migrate", "-down", "-status"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, _ := setup(t)
			err := cli.run(context.Background(), append([]string{"admin"}, tt.args...))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out := setup(t)

	require.NoError(t, cli.run(context.Background(), []string{"admin", "migrate"}))
	assert.Contains(t, out.String(), "memory store creates its schema on open")
}

func Test_commandLine_createTeacher(t *testing.T) {
	tests := []cliTest{
		{name: "empty password", args: []string{"-username", "marina"}, password: "", wantErr: errHelp},
		{name: "short password", args: []string{"-username", "marina"}, password: "short", wantErrStr: "password must be at least 8 characters"},
		{name: "ok", args: []string{"-username", "marina", "-first-name", "Марина", "-last-name", "Ивановна"}, password: "s3cretpass"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, out := setup(t)
			mockPassword(t, tt.password, nil)

			err := cli.run(context.Background(), append([]string{"admin", "create-teacher"}, tt.args...))
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrStr)
			default:
				require.NoError(t, err)
				assert.Contains(t, out.String(), "created teacher marina")

				acc, err := cli.store.Students.GetByUsername(context.Background(), "marina")
				require.NoError(t, err)
				assert.Equal(t, student.RoleTeacher, acc.Role())
				assert.Equal(t, "Марина", acc.FirstName)
			}
		})
	}
}

func Test_commandLine_createTeacher_duplicate(t *testing.T) {
	cli, _ := setup(t)
	mockPassword(t, "s3cretpass", nil)

	args := []string{"admin", "create-teacher", "-username", "marina"}
	require.NoError(t, cli.run(context.Background(), args))

	err := cli.run(context.Background(), args)
	assert.True(t, shared.IsAlreadyExists(err))
}

func Test_commandLine_createTeacher_readError(t *testing.T) {
	cli, _ := setup(t)
	boom := errors.New("not a terminal")
	mockPassword(t, "", boom)

	err := cli.run(context.Background(), []string{"admin", "create-teacher", "-username", "marina"})
	assert.ErrorIs(t, err, boom)
}

func Test_commandLine_token(t *testing.T) {
	cli, out := setup(t)
	mockPassword(t, "s3cretpass", nil)
	require.NoError(t, cli.run(context.Background(), []string{"admin", "create-teacher", "-username", "marina"}))
	acc, err := cli.store.Students.GetByUsername(context.Background(), "marina")
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, cli.run(context.Background(), []string{"admin", "token", "-username", "marina"}))

	id, err := cli.tokens.Parse(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, acc.ID, id)

	err = cli.run(context.Background(), []string{"admin", "token", "-username", "ghost"})
	assert.True(t, shared.IsNotFound(err))
}
