package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkowalik/gradnet/clock"
	"github.com/mkowalik/gradnet/data"
	"github.com/mkowalik/gradnet/layers"
	"github.com/mkowalik/gradnet/loss"
	"github.com/mkowalik/gradnet/monitor"
	"github.com/mkowalik/gradnet/network"
	"github.com/mkowalik/gradnet/optimize"
	"github.com/mkowalik/gradnet/store"
)

type Config struct {
	MNISTDir         string
	Epochs           int
	BatchSize        int
	LearningRate     float64
	ModelName        string
	CheckpointDir    string
	Load             bool
	Save             bool
	MonitorAddr      string
	ConnectionString string
}

func getEnvWithDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("%s: invalid integer %q", key, v)
	}
	return n
}

func getFloatEnv(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Fatalf("%s: invalid number %q", key, v)
	}
	return f
}

func ReadConfig() Config {
	return Config{
		MNISTDir:         getEnvWithDefault("MNIST_DIR", "data/mnist"),
		Epochs:           getIntEnv("EPOCHS", 10),
		BatchSize:        getIntEnv("BATCH_SIZE", 100),
		LearningRate:     getFloatEnv("LEARNING_RATE", 0.05),
		ModelName:        getEnvWithDefault("MODEL_FILE", "mnist-mlp"),
		CheckpointDir:    getEnvWithDefault("CHECKPOINT_DIR", "models"),
		Load:             getEnvWithDefault("LOAD", "false") == "true",
		Save:             getEnvWithDefault("SAVE", "true") == "true",
		MonitorAddr:      getEnvWithDefault("MONITOR_ADDR", ""),
		ConnectionString: getEnvWithDefault("DB_CONNECTION_STRING", ""),
	}
}

func buildNetwork() *network.BackpropNetwork {
	net := network.NewBackprop("mnist-mlp")
	net.PushLayer(layers.NewLinear(784, 256))
	net.PushLayer(layers.NewReLU(256))
	net.PushLayer(layers.NewDropout(256, 0.8))
	net.PushLayer(layers.NewLinear(256, 10))
	net.PushLayer(layers.NewSoftmax(10))
	net.SetLoss(loss.NewCrossEntropy())
	net.InstallOptimizer(func(rows, cols int) optimize.Optimizer {
		return optimize.NewAdam(rows, cols)
	})
	return net
}

func main() {
	config := ReadConfig()

	checkpoints, err := store.NewCheckpointStore(config.CheckpointDir, 4, 30*time.Minute)
	if err != nil {
		log.Fatalf("could not open checkpoint store: %v", err)
	}

	net := buildNetwork()
	if config.Load {
		restored, err := checkpoints.Load(config.ModelName)
		if err != nil {
			log.Fatalf("could not load checkpoint %s: %v", config.ModelName, err)
		}
		net.Network = restored
		log.Printf("restored checkpoint %s", config.ModelName)
	}

	registry := prometheus.NewRegistry()
	metrics := network.NewTrainingMetrics(registry)
	net.SetMetrics(metrics)

	var hub *monitor.Hub
	if config.MonitorAddr != "" {
		hub = monitor.NewHub()
		go hub.Run()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			monitor.ServeWS(hub, w, r)
		})
		go func() {
			log.Printf("monitor listening on %s", config.MonitorAddr)
			log.Fatal(http.ListenAndServe(config.MonitorAddr, mux))
		}()
	}

	var runDB *store.RunDB
	runID := ""
	if config.ConnectionString != "" {
		runDB, err = store.NewRunDB(config.ConnectionString, clock.NewSystemUtcClock())
		if err != nil {
			log.Fatalf("could not open run database: %v", err)
		}
		defer runDB.Close()
		runID, err = runDB.CreateRun(config.ModelName)
		if err != nil {
			log.Fatalf("could not create run: %v", err)
		}
	}

	log.Printf("loading MNIST from %s", config.MNISTDir)
	xTrain, yTrain, xTest, yTest, err := data.NewMNISTLoader(config.MNISTDir).Load()
	if err != nil {
		log.Fatalf("could not load MNIST: %v", err)
	}
	log.Printf("loaded %d training and %d test samples", xTrain.Cols, xTest.Cols)

	sysClock := clock.NewSystemUtcClock()
	batches := data.Batches(xTrain, yTrain, config.BatchSize)

	for epoch := 1; epoch <= config.Epochs; epoch++ {
		start := sysClock.Now()
		trainLoss := 0.0
		for i, b := range batches {
			trainLoss += net.Train(b.X, b.Y, config.LearningRate, 0)
			if hub != nil && i%25 == 0 {
				hub.Publish(monitor.Snapshot{
					Network:   net.Name(),
					Epoch:     epoch,
					Batch:     i,
					Loss:      trainLoss / float64(i+1),
					Timestamp: sysClock.Now().UnixMilli(),
				})
			}
		}
		trainLoss /= float64(len(batches))

		testLoss := net.Test(xTest, yTest)
		accuracy := float64(net.CountCorrectPredictions(yTest, net.Predictions())) / float64(xTest.Cols)
		metrics.ObserveEvaluation(testLoss, accuracy)

		log.Printf("epoch %d: train loss %.4f, test loss %.4f, accuracy %.2f%%, took %v",
			epoch, trainLoss, testLoss, 100*accuracy, sysClock.Now().Sub(start))

		if runDB != nil {
			if err := runDB.RecordEpoch(runID, epoch, trainLoss, testLoss, accuracy); err != nil {
				log.Printf("could not record epoch: %v", err)
			}
		}
		if config.Save {
			if err := checkpoints.Save(net.Network, config.ModelName); err != nil {
				log.Printf("could not save checkpoint: %v", err)
			}
		}
	}
}
