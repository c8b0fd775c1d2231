package main

import (
	"flag"
	"log"

	"github.com/gin-gonic/gin"

	"pricewatch/internal/mirror"
)

func main() {
	var (
		addr     = flag.String("addr", ":9000", "listen address")
		dataPath = flag.String("data", "data/mirror.json", "catalog JSON file")
		pageSize = flag.Int("page-size", 10, "items per search page")
	)
	flag.Parse()

	catalog, err := mirror.Load(*dataPath, *pageSize)
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}

	r := gin.Default()
	mirror.NewHandler(catalog).RegisterRoutes(r)

	log.Printf("mirror-server listening on %s (catalog %s)", *addr, *dataPath)
	log.Fatal(r.Run(*addr))
}
