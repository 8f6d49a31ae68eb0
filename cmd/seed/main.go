package main

import (
	"context"
	"flag"
	"log"
	"time"

	"upasthiti/internal/auth"
	"upasthiti/internal/config"
	"upasthiti/internal/seed"
	"upasthiti/internal/store"
)

// Seed writes the demo teacher roster and, for each demo teacher, demo students
// and join requests. Existing keys are left alone.
func main() {
	teachersOnly := flag.Bool("teachers-only", false, "seed only the teacher roster")
	flag.Parse()

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	kv, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("store open failed: %v", err)
	}
	defer kv.Close()

	dir := auth.NewDirectory(kv)
	wrote, err := seed.Teachers(ctx, dir)
	if err != nil {
		log.Fatalf("seed teachers: %v", err)
	}
	if !wrote {
		log.Println("teacher roster already present")
	}
	if *teachersOnly {
		return
	}

	teachers, _, err := dir.Teachers(ctx)
	if err != nil {
		log.Fatalf("read teachers: %v", err)
	}
	for _, t := range teachers {
		if err := seed.Teacher(ctx, kv, t.Email); err != nil {
			log.Fatalf("seed %s: %v", t.Email, err)
		}
	}
	log.Printf("seed complete (%s backend)", cfg.StoreBackend)
}
