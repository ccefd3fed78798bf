package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func mongoUpsert() *options.UpdateOptions {
	return options.Update().SetUpsert(true)
}

// BanList is the process-wide banned-JID set. Membership is checked
// before any command executes and the antibot "ban" action writes here.
// Mongo is the durable copy; without MONGO_URL the list is memory-only.
type BanList struct {
	mu   sync.RWMutex
	jids map[string]bool
	coll *mongo.Collection
}

type banRecord struct {
	JID      string    `bson:"jid"`
	Reason   string    `bson:"reason"`
	BannedAt time.Time `bson:"banned_at"`
}

func NewBanList(coll *mongo.Collection) *BanList {
	return &BanList{jids: make(map[string]bool), coll: coll}
}

// Load pulls the persisted list into memory at startup.
func (b *BanList) Load() error {
	if b.coll == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	cursor, err := b.coll.Find(ctx, bson.M{})
	if err != nil {
		return err
	}
	var records []banRecord
	if err := cursor.All(ctx, &records); err != nil {
		return err
	}
	b.mu.Lock()
	for _, rec := range records {
		b.jids[getCleanID(rec.JID)] = true
	}
	b.mu.Unlock()
	fmt.Printf("✅ [BANLIST] Loaded %d banned users\n", len(records))
	return nil
}

// Add persists before updating memory so a ban record survives even if
// a later group-removal call fails.
func (b *BanList) Add(jid, reason string) error {
	clean := getCleanID(jid)
	var err error
	if b.coll != nil {
		ctx, cancel := context.WithTimeout(context.Background(), gatewayTimeout)
		defer cancel()
		_, err = b.coll.UpdateOne(ctx,
			bson.M{"jid": clean},
			bson.M{"$set": banRecord{JID: clean, Reason: reason, BannedAt: time.Now()}},
			mongoUpsert())
	}
	b.mu.Lock()
	b.jids[clean] = true
	b.mu.Unlock()
	return err
}

func (b *BanList) Remove(jid string) error {
	clean := getCleanID(jid)
	b.mu.Lock()
	delete(b.jids, clean)
	b.mu.Unlock()
	if b.coll == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), gatewayTimeout)
	defer cancel()
	_, err := b.coll.DeleteOne(ctx, bson.M{"jid": clean})
	return err
}

func (b *BanList) Contains(jid string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.jids[getCleanID(jid)]
}

func (b *BanList) All() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.jids))
	for jid := range b.jids {
		out = append(out, jid)
	}
	return out
}

// ==================== AUDIT LOG ====================

// AuditLog records every executed enforcement decision.
type AuditLog struct {
	coll *mongo.Collection
}

func NewAuditLog(coll *mongo.Collection) *AuditLog {
	return &AuditLog{coll: coll}
}

func (a *AuditLog) Record(evt ModerationEvent) {
	if a.coll == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), gatewayTimeout)
	defer cancel()
	if _, err := a.coll.InsertOne(ctx, evt); err != nil {
		fmt.Printf("❌ [AUDIT] Mongo save error: %v\n", err)
	}
}
