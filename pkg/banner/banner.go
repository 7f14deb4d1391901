package banner

import (
	"fmt"
)

const banner = `
 ██████╗ ██████╗ ████████╗██████╗ ███████╗███████╗
██╔════╝ ██╔══██╗╚══██╔══╝██╔══██╗██╔════╝██╔════╝
██║  ███╗██████╔╝   ██║   ██████╔╝█████╗  █████╗
██║   ██║██╔═══╝    ██║   ██╔══██╗██╔══╝  ██╔══╝
╚██████╔╝██║        ██║   ██║  ██║███████╗███████╗
 ╚═════╝ ╚═╝        ╚═╝   ╚═╝  ╚═╝╚══════╝╚══════╝
`

// Print writes the startup banner with the effective runtime settings.
func Print(addr, dbPath, model, sources, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	fmt.Printf("Model:    %s\n", model)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	if sources != "" {
		fmt.Printf("Config sources: %s\n", sources)
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/threads - Create a thread (JSON: title)")
	fmt.Println("GET  /v1/threads - List all threads")
	fmt.Println("POST /v1/threads/{id}/messages - Send a message (JSON: text)")
	fmt.Println("POST /v1/threads/{id}/fork - Fork at a message (JSON: message_id)")
	fmt.Println("GET  /v1/events - Websocket event stream")
	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -X POST 'http://localhost%s/v1/threads' -d '{\"title\": \"hello\"}'\n", addr)
	fmt.Printf("curl 'http://localhost%s/v1/threads'\n", addr)
	fmt.Println("\n== Production? =================================================")
	fmt.Println("Set a proper storage path (--db)")
	fmt.Println("Set GEMINI_API_KEY and a rate limit for production use")
}
