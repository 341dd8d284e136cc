package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/yorunoba/nightdesk-backend/config"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/internal/app/service"
	"github.com/yorunoba/nightdesk-backend/internal/db"
)

// seed imports a menu workbook into one store:
//
//	go run ./cmd/seed <store_id> <menu.xlsx>
//
// The sheet layout is the same as the admin upload: category, name, price, description.
func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: go run ./cmd/seed <store_id> <xlsx_file_path>")
	}

	storeID, err := strconv.ParseUint(os.Args[1], 10, 32)
	if err != nil || storeID == 0 {
		log.Fatalf("Invalid store id %q", os.Args[1])
	}
	filePath := os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	store, err := repository.NewStoreRepository(db.GetDB()).FindByID(uint(storeID))
	if err != nil {
		log.Fatal("Failed to find store:", err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Importing %s into %s (id=%d)\n", filePath, store.Name, store.ID)
	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	menuService := service.NewMenuService(repository.NewMenuRepository(db.GetDB()), nil)
	result, err := menuService.ImportXLSX(model.Actor{StoreID: store.ID, Role: model.RoleAdmin}, data)
	if err != nil {
		log.Fatal("Import failed:", err)
	}

	fmt.Printf("Created %d menus\n", result.Created)
	for _, skipped := range result.Skipped {
		fmt.Printf("  skipped row %d: %s\n", skipped.Row, skipped.Reason)
	}
}
