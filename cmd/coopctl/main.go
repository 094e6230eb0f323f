package main

import (
	"github.com/joho/godotenv"

	"github.com/coopledger/coopledger/cmd/coopctl/cli"
)

func main() {
	_ = godotenv.Load()
	cli.Execute()
}
