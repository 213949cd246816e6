// @title           Todo API
// @version         1.0
// @description     CRUD service for todo items with status filter and title search.
// @host            localhost:8080
// @BasePath        /api
package main

import "github.com/AlexMuzzy/sample-crud-kotlin-app/internal/cli"

func main() {
	cli.Execute()
}
