// Package tlsconfig serves the HTTP API over TLS with certificates that are
// reloaded from disk when they change, so renewals need no restart.
//
//	r := tlsconfig.NewReloader(certFile, keyFile, 5*time.Minute)
//	if err := r.Start(ctx); err != nil {
//		return err
//	}
//	cfg, err := tlsconfig.ServerConfig(r, "1.3")
package tlsconfig
