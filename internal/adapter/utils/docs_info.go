// @title           StudyRAG API
// @version         1.0
// @description     Queues study-tool generation and document ingestion jobs over A-Level ICT notes.

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package utils

//regenerate after changing a handler annotation
//swag init -g internal/adapter/utils/docs_info.go --parseDependency --parseInternal --dir ./ --output ./cmd/studyrag/docs
