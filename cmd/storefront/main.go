package main

import (
	stlog "log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"sellpage/checkout"
	"sellpage/gateway"
	"sellpage/ledger"
	"sellpage/utils"
	"sellpage/verify"
	"sellpage/web/controllers"
	"sellpage/web/db"
	"sellpage/web/email"
	"sellpage/web/middleware"
)

func init() {
	utils.LoadEnv()
	db.Connect()
	db.Sync()
}

func main() {
	ledgerPath := os.Getenv("LEDGER_DB_PATH")
	if ledgerPath == "" {
		ledgerPath = "sales.db"
	}
	seen, err := ledger.OpenIdempotencyStore(ledgerPath)
	if err != nil {
		stlog.Fatalln("Error opening sale ledger store:", err)
	}
	defer seen.Close()

	challenges := verify.NewDBStore(db.DB)
	verifier := verify.New(challenges, email.CodeSender{})

	go func() {
		for {
			time.Sleep(10 * time.Minute)
			if err := challenges.Purge(); err != nil {
				stlog.Println("Error purging expired challenges:", err)
			}
		}
	}()

	payGW := gateway.NewClientFromEnv()
	sales := ledger.New(db.DB, seen)

	machine := checkout.NewMachine(controllers.PageStore{}, verifier, payGW, sales)
	machine.StartCleanup(10*time.Minute, time.Hour)

	controllers.Setup(machine, payGW)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	globalLimiter := middleware.NewRateLimiter(15, time.Minute) // 15 requests/min/IP
	globalLimiter.StartCleanup(10 * time.Minute)
	limited := globalLimiter.Middleware()

	r.POST("/signup", limited, controllers.Signup)
	r.POST("/login", limited, controllers.Login)

	r.PUT("/pages/:slug", limited, middleware.RequireAuth, controllers.PublishPage)
	r.GET("/pages", limited, middleware.RequireAuth, controllers.ListPages)
	r.GET("/pages/:slug/stats", limited, middleware.RequireAuth, controllers.PageStats)

	r.GET("/p/:slug", limited, controllers.GetPublicPage)
	r.GET("/p/:slug/qr", limited, controllers.PageQR)

	r.POST("/checkout/:slug", limited, controllers.OpenCheckout)
	r.GET("/checkout/session/:id", limited, controllers.GetCheckout)
	r.POST("/checkout/session/:id/contact", limited, controllers.SetContact)
	r.POST("/checkout/session/:id/verify/send", limited, controllers.SendCode)
	r.POST("/checkout/session/:id/verify/confirm", limited, controllers.ConfirmCode)
	r.POST("/checkout/session/:id/pay", limited, controllers.Pay)
	r.POST("/checkout/session/:id/callback", controllers.PaymentCallback)
	r.POST("/checkout/session/:id/cancel", limited, controllers.CancelPayment)
	r.POST("/checkout/session/:id/close", limited, controllers.CloseCheckout)

	port := os.Getenv("GIN_PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
