package main

import (
	"github.com/ariefcatur/bagstore/internal/cmd"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cmd.Execute()
}
