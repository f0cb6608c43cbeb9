package main

// General API documentation for swaggo. Regenerate with `swag init`.
//
// @title           llmd API
// @version         1.0
// @description     HTTP API for single-slot local model management and text generation.
//
// @contact.name   llmd maintainers
// @contact.url    https://github.com/your-org/llmd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
