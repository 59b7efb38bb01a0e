package main

import (
	"log"

	"github.com/hilmishah-img/usms/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
