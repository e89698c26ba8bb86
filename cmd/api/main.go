package main

import (
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"net/smtp"
	"os"
	"time"

	"github.com/treinix/treinix/auth"
	"github.com/treinix/treinix/broker"
	"github.com/treinix/treinix/centro"
	"github.com/treinix/treinix/course"
	"github.com/treinix/treinix/db"
	"github.com/treinix/treinix/payment"
	"github.com/treinix/treinix/student"
	"github.com/treinix/treinix/subscription"
	"github.com/treinix/treinix/turma"
	"github.com/treinix/treinix/user"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v7"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Build-time injected variables
var (
	Version = ""
)

func main() {
	var logger *zap.Logger
	var authEnvironment auth.Environment
	var dotFile string
	var err error

	// Determine running environment and initialize structural logger
	env := os.Getenv("API_ENV")
	if "production" == env {
		dotFile = ".env.production"
		authEnvironment = auth.EnvProduction
		logger, err = zap.NewProduction()
	} else {
		dotFile = ".env.development"
		authEnvironment = auth.EnvDevelopment
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		log.Fatalf("Cannot initialize logger: %v\n", err)
	}
	logger = logger.With(zap.String("Version", Version))
	defer logger.Sync()

	// Load configurations from dotFile
	if err := godotenv.Load(dotFile); err != nil {
		logger.Fatal("Cannot load configurations from .env",
			zap.Error(err),
		)
	}

	// Initialize sentry for error reporting
	if err := sentry.Init(sentry.ClientOptions{
		Environment: string(authEnvironment),
		Debug:       authEnvironment == auth.EnvDevelopment,
	}); err != nil {
		logger.Fatal("Cannot initialize sentry",
			zap.Error(err),
		)
	}
	defer sentry.Flush(time.Second * 2)

	// Attach sentry to zap so we can do automatic error capturing
	cfg := zapsentry.Configuration{
		Level: zapcore.ErrorLevel,
		Tags: map[string]string{
			"component": "api",
		},
	}
	core, err := zapsentry.NewCore(cfg, zapsentry.NewSentryClientFromClient(sentry.CurrentHub().Client()))
	logger = zapsentry.AttachCoreToLogger(core, logger)

	dbInstance, err := db.New(db.Options{
		URI:    os.Getenv("POSTGRES_URI"),
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Cannot connect to Postgres",
			zap.Error(err),
		)
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{os.Getenv("REDIS_URI")},
		Password: os.Getenv("REDIS_PW"),
		DB:       0,
	})
	if _, err := rdb.Ping().Result(); err != nil {
		logger.Fatal("Cannot connect to Redis",
			zap.Error(err),
		)
	}
	defer rdb.Close()

	var publisher broker.Publisher
	if amqpURI := os.Getenv("AMQP_URI"); len(amqpURI) > 0 {
		amqpBroker, err := broker.NewAMQPBroker(amqpURI)
		if err != nil {
			logger.Fatal("Cannot connect to Broker",
				zap.Error(err),
			)
		}
		defer amqpBroker.Close()
		publisher = amqpBroker
	} else {
		logger.Info("AMQP_URI not set, domain events stay in-process")
		publisher = broker.NewMemoryBroker()
	}

	smtpAuth := smtp.PlainAuth("", os.Getenv("SMTP_USERNAME"), os.Getenv("SMTP_PASSWORD"), os.Getenv("SMTP_HOST"))

	authManager, err := auth.New(auth.Options{
		Redis:  rdb,
		Logger: logger,

		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),

		Environment: authEnvironment,
		SMTPAuth:    smtpAuth,
		From:        os.Getenv("SMTP_FROM"),
		Hostname:    os.Getenv("SMTP_HOST") + ":" + os.Getenv("SMTP_PORT"),
		EmailOption: auth.EmailOption{
			Name: os.Getenv("SITE_NAME"),
			LinkGenerator: func(uid, token string) string {
				return fmt.Sprintf("%s/confirmar/%s/%s", os.Getenv("SITE_URL"), uid, token)
			},
		},
	})
	if err != nil {
		logger.Fatal("Cannot initialize Auth",
			zap.Error(err),
		)
	}

	centroManager, err := centro.NewManager(logger, dbInstance)
	if err != nil {
		logger.Fatal("Cannot initialize CentroManager",
			zap.Error(err),
		)
	}

	userManager, err := user.NewManager(logger, dbInstance)
	if err != nil {
		logger.Fatal("Cannot initialize UserManager",
			zap.Error(err),
		)
	}

	subscriptionManager, err := subscription.NewManager(logger, dbInstance)
	if err != nil {
		logger.Fatal("Cannot initialize SubscriptionManager",
			zap.Error(err),
		)
	}

	studentManager, err := student.NewManager(logger, dbInstance)
	if err != nil {
		logger.Fatal("Cannot initialize StudentManager",
			zap.Error(err),
		)
	}

	courseManager, err := course.NewManager(logger, dbInstance)
	if err != nil {
		logger.Fatal("Cannot initialize CourseManager",
			zap.Error(err),
		)
	}

	turmaManager, err := turma.NewManager(logger, dbInstance)
	if err != nil {
		logger.Fatal("Cannot initialize TurmaManager",
			zap.Error(err),
		)
	}

	paymentManager, err := payment.NewManager(logger, dbInstance)
	if err != nil {
		logger.Fatal("Cannot initialize PaymentManager",
			zap.Error(err),
		)
	}

	gate, err := subscription.NewGate(subscription.GateOptions{
		Redis:               rdb,
		CentroManager:       centroManager,
		SubscriptionManager: subscriptionManager,
		Evaluator:           subscription.NewEvaluator(),
		Logger:              logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize access Gate",
			zap.Error(err),
		)
	}

	centroRouter, err := centro.NewService(centro.ServiceOptions{
		Auth:          authManager,
		CentroManager: centroManager,
		UserManager:   userManager,
		Publisher:     publisher,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Centro Service Router",
			zap.Error(err),
		)
	}

	userRouter, err := user.NewService(user.ServiceOptions{
		Auth:        authManager,
		UserManager: userManager,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize User Service Router",
			zap.Error(err),
		)
	}

	subscriptionRouter, err := subscription.NewService(subscription.ServiceOptions{
		Auth:                authManager,
		SubscriptionManager: subscriptionManager,
		CentroManager:       centroManager,
		Gate:                gate,
		Publisher:           publisher,
		Logger:              logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Subscription Service Router",
			zap.Error(err),
		)
	}

	studentRouter, err := student.NewService(student.ServiceOptions{
		Auth:           authManager,
		StudentManager: studentManager,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Student Service Router",
			zap.Error(err),
		)
	}

	courseRouter, err := course.NewService(course.ServiceOptions{
		Auth:          authManager,
		CourseManager: courseManager,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Course Service Router",
			zap.Error(err),
		)
	}

	turmaRouter, err := turma.NewService(turma.ServiceOptions{
		Auth:         authManager,
		TurmaManager: turmaManager,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Turma Service Router",
			zap.Error(err),
		)
	}

	paymentRouter, err := payment.NewService(payment.ServiceOptions{
		Auth:           authManager,
		PaymentManager: paymentManager,
		Publisher:      publisher,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Payment Service Router",
			zap.Error(err),
		)
	}

	rootRouter := chi.NewRouter()

	rootRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{os.Getenv("SITE_URL")},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	rootRouter.Mount("/centros", centroRouter.Router())
	rootRouter.Mount("/users", userRouter.Router())
	rootRouter.Mount("/subscriptions", subscriptionRouter.Router())
	rootRouter.Mount("/students", studentRouter.Router())
	rootRouter.Mount("/courses", courseRouter.Router())
	rootRouter.Mount("/turmas", turmaRouter.Router())
	rootRouter.Mount("/payments", paymentRouter.Router())

	rootRouter.HandleFunc("/pprof/*", pprof.Index)
	rootRouter.HandleFunc("/pprof/cmdline", pprof.Cmdline)
	rootRouter.HandleFunc("/pprof/profile", pprof.Profile)
	rootRouter.HandleFunc("/pprof/symbol", pprof.Symbol)
	rootRouter.HandleFunc("/pprof/trace", pprof.Trace)

	addr := os.Getenv("API_ADDR")
	if len(addr) == 0 {
		addr = ":8090"
	}

	srv := &http.Server{
		Handler: rootRouter,
		Addr:    addr,
	}

	logger.Info("API started",
		zap.String("Addr", addr),
	)

	log.Fatalln(srv.ListenAndServe())
}
