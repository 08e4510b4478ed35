// Package config loads and watches the agent configuration file (config.yaml).
//
// Top-level types:
//   - Config{Agent, Collector, Handler}: full config tree parsed from YAML
//   - AgentConfig: collect_interval, flush_interval, metrics_listen
//   - CollectorConfig: method (http|unix-socket), path_prefix, url, user,
//     pass/pass_env, socket_path, timeout, ignore_non_aggregate_rows,
//     sections (scalar or list), section_overrides
//   - HandlerConfig: hosts, port, transport_protocol (tcp|udp), timeout,
//     batch_size, max/trim backlog multipliers, codec
//
// Load(path) reads the YAML file, applies defaults (http method, 10s collect
// and flush, localhost:2004 over tcp, batch 1, multipliers 5/4, pickle), then
// validates required fields and enums.
//
// Resolve(name, section, global) layers a section block over the global
// collector keys (section wins). CollectorConfig.Targets() resolves every
// configured section in list order.
//
// Watch(ctx, path, onChange) uses fsnotify on the file's parent directory and
// calls onChange with the newly parsed Config whenever the file is written or
// replaced by an atomic-save rename.
package config
