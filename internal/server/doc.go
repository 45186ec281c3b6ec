// Package server exposes the download pipeline over local HTTP for browser
// extensions that cannot use native messaging.
//
// Routes:
//
//	GET  /ping       liveness probe, {"status":"ok"}
//	POST /download   {videos:[{url,title,html}]} into a timestamped batch folder
//	POST /save_page  {html,path} written to disk under the output root
//
// Every response carries permissive CORS headers. POST bodies must be sent as
// application/json. Download requests are serialised so at most one batch
// runs at a time.
package server
