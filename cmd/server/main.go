package main

import "picserve/internal/app"

func main() {
	app.Run()
}
