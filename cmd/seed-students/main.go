package main

import (
	"context"
	"fmt"
	"time"

	"github.com/okulpanel/sinav-backend/internal/config"
	"github.com/okulpanel/sinav-backend/internal/database"
	"github.com/okulpanel/sinav-backend/internal/logger"
	"github.com/okulpanel/sinav-backend/internal/model"
	"github.com/okulpanel/sinav-backend/internal/repository"
	"github.com/okulpanel/sinav-backend/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	studentRepo := repository.NewStudentRepository(pool)
	studentService := service.NewStudentService(studentRepo)

	fmt.Println("=== Seeding 50 Students ===")

	classLabel := "12-A"

	names := []string{
		"Ahmet Yılmaz", "Ayşe Demir", "Mehmet Kaya", "Fatma Çelik", "Mustafa Şahin",
		"Emine Yıldız", "Ali Aydın", "Hatice Özdemir", "Hüseyin Arslan", "Zeynep Doğan",
		"Hasan Kılıç", "Elif Aslan", "İbrahim Çetin", "Meryem Kara", "Osman Koç",
		"Şerife Kurt", "Yusuf Özkan", "Zehra Şimşek", "Ömer Polat", "Sultan Özturk",
		"Ramazan Erdoğan", "Hacer Aksoy", "Halil Güneş", "Havva Bozkurt", "Süleyman Taş",
		"Esra Korkmaz", "Abdullah Acar", "Merve Güler", "Recep Çakır", "Büşra Avcı",
		"Salih Bulut", "Kübra Duman", "İsmail Ateş", "Rabia Yavuz", "Murat Sarı",
		"Selin Turan", "Kemal Erdem", "Gamze Uçar", "Burak Keskin", "Derya Tekin",
		"Emre Yalçın", "Seda Köse", "Serkan Aktaş", "Tuğba Soylu", "Volkan Ünal",
		"Melike Başar", "Onur Sezer", "İrem Toprak", "Cem Karaca", "Nur Ertaş",
	}

	successCount := 0
	for i := 0; i < 50; i++ {
		number := fmt.Sprintf("%04d", 2000+i+1)

		student := &model.Student{
			Number:       number,
			Name:         names[i],
			ClassLabel:   classLabel,
			PasswordHash: "sinav123", // Service will hash it
		}

		err := studentService.Create(ctx, student)
		if err != nil {
			fmt.Printf("Error creating student %s (number: %s): %v\n", student.Name, student.Number, err)
		} else {
			successCount++
			if (i+1)%10 == 0 {
				fmt.Printf("Created %d students...\n", i+1)
			}
		}
	}

	fmt.Printf("\nSeed completed! Successfully added %d/50 students.\n", successCount)
}
