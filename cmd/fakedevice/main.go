// Command fakedevice serves an in-memory WiFi Book Transfer device for
// manual testing of the likebook CLI without real hardware.
package main

import (
	"flag"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pablogventura/likebook-wifi-book-uploader/devicetest"
	"github.com/pablogventura/likebook-wifi-book-uploader/discover"
	"github.com/pablogventura/likebook-wifi-book-uploader/tool"
)

func main() {
	port := flag.Int("port", discover.DefaultPort, "port to listen on")
	flag.Parse()

	gin.SetMode(gin.ReleaseMode)
	logger := tool.NewLogger("dev")

	srv := devicetest.New()
	srv.Seed("sample.epub", []byte("sample epub payload"))
	srv.Seed("manual.pdf", []byte("sample pdf payload"))

	addr := fmt.Sprintf(":%d", *port)
	logger.Infof("Fake device listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.Fatalf("Fake device failed: %v", err)
	}
}
