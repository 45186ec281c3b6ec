// Command vimeodl downloads Vimeo videos from signed playlist links.
//
// It runs as a Chrome native messaging host (`vimeodl host`), as a local
// HTTP endpoint for the browser extension (`vimeodl serve`), or directly from
// the terminal (`vimeodl download`, `vimeodl resolve`). `status`, `history`
// and `config` inspect the installation.
package main
