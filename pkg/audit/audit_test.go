package audit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Ebang213/pharmaforge/pkg/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Record_WritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := audit.NewLoggerWithWriter(&buf)

	err := logger.Record(context.Background(), "tenant-1", "actor-1", audit.EventAccess, "login", "/api/v1/auth", nil)
	require.NoError(t, err)

	output := buf.String()
	assert.True(t, strings.HasPrefix(output, "AUDIT: "))

	jsonPart := strings.TrimSpace(strings.TrimPrefix(output, "AUDIT: "))

	var event audit.Event
	err = json.Unmarshal([]byte(jsonPart), &event)
	require.NoError(t, err)

	assert.Equal(t, audit.EventAccess, event.Type)
	assert.Equal(t, "login", event.Action)
	assert.Equal(t, "/api/v1/auth", event.Resource)
	assert.Equal(t, "tenant-1", event.TenantID)
	assert.Equal(t, "actor-1", event.ActorID)
	assert.NotEmpty(t, event.ID)
	// UUID format: 8-4-4-4-12
	assert.Len(t, event.ID, 36)
}

func TestLogger_Record_DefaultsTenantAndActorToSystem(t *testing.T) {
	var buf bytes.Buffer
	logger := audit.NewLoggerWithWriter(&buf)

	err := logger.Record(context.Background(), "", "", audit.EventSystem, "startup", "engine", nil)
	require.NoError(t, err)

	jsonPart := strings.TrimSpace(strings.TrimPrefix(buf.String(), "AUDIT: "))
	var event audit.Event
	require.NoError(t, json.Unmarshal([]byte(jsonPart), &event))

	assert.Equal(t, "system", event.TenantID)
	assert.Equal(t, "system", event.ActorID)
}

func TestLogger_Record_WithMetadata(t *testing.T) {
	var buf bytes.Buffer
	logger := audit.NewLoggerWithWriter(&buf)

	meta := map[string]interface{}{"ip": "10.0.0.1", "user_agent": "test"}
	err := logger.Record(context.Background(), "tenant-1", "actor-1", audit.EventMutation, "deploy", "/clusters/prod", meta)
	require.NoError(t, err)

	jsonPart := strings.TrimSpace(strings.TrimPrefix(buf.String(), "AUDIT: "))
	var event audit.Event
	require.NoError(t, json.Unmarshal([]byte(jsonPart), &event))

	assert.Equal(t, "10.0.0.1", event.Metadata["ip"])
}

func TestNewLogger_ReturnsLogger(t *testing.T) {
	logger := audit.NewLogger()
	assert.NotNil(t, logger)
}
