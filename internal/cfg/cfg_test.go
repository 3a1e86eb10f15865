package cfg

import (
	"testing"
	"time"

	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/DRSN-tech/pharmacy-counter/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_USER", "pharmacy")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "counter")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("PHARMACY_NAME", "City Hospital Pharmacy")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	c, err := Load(logger.Nop{})
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Http.Port)
	assert.Equal(t, "8091", c.Grpc.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "pharmacy.issues", c.Kafka.Topic)
	assert.Equal(t, "pharmacy-documents", c.Minio.BucketName)
	assert.Equal(t, 10*time.Second, c.Counter.SubmitTimeout)
	assert.Equal(t, 250*time.Millisecond, c.Counter.SearchDebounce)
	assert.Equal(t, 24*time.Hour, c.Redis.PrescriptionTokenTTL)
	assert.Equal(t, "db/migrations", c.Db.MigrationsPath)
	assert.Equal(t, "City Hospital Pharmacy", c.Pharmacy.Name)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SUBMIT_TIMEOUT", "3s")
	t.Setenv("SEARCH_DEBOUNCE", "0s")
	t.Setenv("INVENTORY_MAX_RETRIES", "5")
	t.Setenv("WRITE_TIMEOUT", "7s")

	c, err := Load(logger.Nop{})
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, c.Counter.SubmitTimeout)
	assert.Zero(t, c.Counter.SearchDebounce)
	assert.Equal(t, 5, c.Counter.InventoryMaxRetries)
	assert.Equal(t, 7*time.Second, c.Redis.Timeout)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("POSTGRES_USER", "")

	_, err := Load(logger.Nop{})
	assert.Error(t, err)
}

func TestLoad_MissingPharmacyName(t *testing.T) {
	setRequired(t)
	t.Setenv("PHARMACY_NAME", "")

	_, err := Load(logger.Nop{})
	assert.ErrorContains(t, err, "PHARMACY_NAME")
}

func TestParseIntEnv_Invalid(t *testing.T) {
	t.Setenv("KAFKA_PARTITIONS", "three")

	_, err := parseIntEnv("KAFKA_PARTITIONS", 3)
	assert.ErrorIs(t, err, e.ErrIncorrectEnvVariable)
}
