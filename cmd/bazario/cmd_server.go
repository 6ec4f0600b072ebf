package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adityaraj/bazario/app/routes"
	"github.com/adityaraj/bazario/app/services"
	"github.com/adityaraj/bazario/config"
	"github.com/adityaraj/bazario/internal/server"
	"github.com/adityaraj/bazario/pkg/router"
	"github.com/adityaraj/bazario/pkg/ws"
)

// bazario serve — boot everything and listen.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start()
	},
}

// bazario route:list — print all registered routes.
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered named routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}

		// Registration only records handlers; none of them run here, so
		// the services can be built without a database behind them.
		r := router.New()
		routes.RegisterAPI(r, routes.Deps{
			Auth:    services.NewAuthService(nil, nil, 0),
			Google:  services.NewGoogleService(),
			Catalog: services.NewCatalogService(nil),
			Users:   services.NewUserService(nil),
			Orders:  services.NewOrderService(nil, nil, nil),
			Hub:     ws.NewHub(),
		})

		infos := r.Routes()
		if len(infos) == 0 {
			fmt.Println("No named routes registered.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}
