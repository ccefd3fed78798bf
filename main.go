package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func initRedis() *redis.Client {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		fmt.Println("⚠️ [REDIS] REDIS_URL is empty, settings will not survive restart")
		return nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("❌ Redis URL parsing failed: %v", err)
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("❌ Redis connection failed: %v", err)
	}
	fmt.Println("🚀 [REDIS] Connection established")
	return rdb
}

func initMongo() *mongo.Client {
	mongoURL := os.Getenv("MONGO_URL")
	if mongoURL == "" {
		fmt.Println("⚠️ MONGO_URL not found! Bans and audit log will not be saved.")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	mClient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		fmt.Println("❌ MongoDB connection error:", err)
		return nil
	}
	if err := mClient.Ping(ctx, nil); err != nil {
		fmt.Println("❌ MongoDB ping failed:", err)
		return nil
	}
	fmt.Println("🍃 [MONGODB] Connected")
	return mClient
}

func warnLimitFromEnv() int {
	if raw := os.Getenv("WARN_COUNT"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return DefaultWarnLimit
}

func main() {
	fmt.Printf("🚀 %s | STARTING\n", BOT_NAME)
	godotenv.Load()

	rdb := initRedis()
	mongoClient := initMongo()

	var store ConfigStore
	if rdb != nil {
		store = NewRedisStore(rdb)
	} else {
		store = NewMemoryStore()
	}

	var banColl, auditColl *mongo.Collection
	if mongoClient != nil {
		db := mongoClient.Database("sentinel")
		banColl = db.Collection("banlist")
		auditColl = db.Collection("moderation_events")
	}
	bans := NewBanList(banColl)
	if err := bans.Load(); err != nil {
		fmt.Println("⚠️ [BANLIST] Load failed:", err)
	}
	audit := NewAuditLog(auditColl)

	// Postgres session container
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("❌ FATAL ERROR: DATABASE_URL environment variable is missing!")
	}
	fmt.Println("🐘 [DATABASE] Connecting to PostgreSQL...")
	rawDB, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("❌ Failed to open Postgres connection: %v", err)
	}
	rawDB.SetMaxOpenConns(20)
	rawDB.SetMaxIdleConns(5)
	rawDB.SetConnMaxLifetime(30 * time.Minute)

	container := sqlstore.NewWithDB(rawDB, "postgres", waLog.Stdout("Database", "ERROR", true))
	if err := container.Upgrade(context.Background()); err != nil {
		log.Fatalf("❌ Failed to initialize database tables: %v", err)
	}

	device, err := container.GetFirstDevice(context.Background())
	if err != nil {
		log.Fatalf("❌ Could not load device: %v", err)
	}

	client := whatsmeow.NewClient(device, waLog.Stdout("Client", "ERROR", true))
	mod := NewModeration(NewWAGateway(client), store, bans, audit,
		waLog.Stdout("Moderation", "INFO", true), warnLimitFromEnv())
	for _, num := range strings.Split(os.Getenv("SUDO_NUMBERS"), ",") {
		if num = strings.TrimSpace(num); num != "" {
			mod.AddSudo(num)
		}
	}

	client.AddEventHandler(func(evt interface{}) {
		handleEvent(client, mod, evt)
	})

	if client.Store.ID == nil {
		number := os.Getenv("PAIR_NUMBER")
		if number == "" {
			log.Fatal("❌ No session found and PAIR_NUMBER is not set")
		}
		if err := client.Connect(); err != nil {
			log.Fatalf("❌ Connect failed: %v", err)
		}
		time.Sleep(5 * time.Second)
		code, err := client.PairPhone(context.Background(), number, true, whatsmeow.PairClientChrome, "Chrome (Linux)")
		if err != nil {
			log.Fatalf("❌ Pairing failed: %v", err)
		}
		fmt.Printf("📱 [PAIRING] Code for %s: %s\n", number, code)
	} else {
		mod.SetSelf(client.Store.ID.User)
		if err := client.Connect(); err != nil {
			log.Fatalf("❌ Connect failed: %v", err)
		}
	}

	// Web panel
	panel := newWebPanel(client, mod)
	panel.routes()
	mod.OnEvent(panel.Broadcast)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	go func() {
		fmt.Printf("🌐 Web panel running on port %s\n", port)
		if err := http.ListenAndServe(":"+port, nil); err != nil {
			log.Printf("❌ Server error: %v\n", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	fmt.Println("\n🛑 Shutting down...")
	client.Disconnect()
	if mongoClient != nil {
		mongoClient.Disconnect(context.Background())
	}
	rawDB.Close()
	fmt.Println("👋 Goodbye!")
}
