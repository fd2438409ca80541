//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("garden-climate-test"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// startPostgres runs PostgreSQL and returns a DSN for it.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("garden_climate"),
		tcpostgres.WithUsername("climate"),
		tcpostgres.WithPassword("climate"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start postgres container")

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

// weatherServer imitates the historical weather API. Every day of the requested
// range gets a temperate record: a seasonal cycle between about -4 and 24 °C
// and 2 mm of rain.
type weatherServer struct {
	*httptest.Server
	requests atomic.Int32
}

func startWeatherServer(t *testing.T) *weatherServer {
	t.Helper()
	ws := &weatherServer{}
	ws.Server = httptest.NewServer(http.HandlerFunc(ws.handle))
	t.Cleanup(ws.Close)
	return ws
}

func (ws *weatherServer) handle(w http.ResponseWriter, r *http.Request) {
	ws.requests.Add(1)
	start, err := time.Parse(time.DateOnly, r.URL.Query().Get("start_date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := time.Parse(time.DateOnly, r.URL.Query().Get("end_date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	daily := map[string]any{}
	var (
		days         []string
		tmin, tmax   []float64
		precip, mean []float64
	)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		m := 10 - 10*math.Cos(2*math.Pi*float64(d.YearDay()-15)/365)
		days = append(days, d.Format(time.DateOnly))
		tmin = append(tmin, math.Round((m-4)*10)/10)
		tmax = append(tmax, math.Round((m+4)*10)/10)
		mean = append(mean, math.Round(m*10)/10)
		precip = append(precip, 2)
	}
	daily["time"] = days
	daily["temperature_2m_min"] = tmin
	daily["temperature_2m_max"] = tmax
	daily["temperature_2m_mean"] = mean
	daily["precipitation_sum"] = precip

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"daily": daily})
}
