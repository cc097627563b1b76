package observability

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// RecentMessageInfo représente un message récent dans le pipeline
type RecentMessageInfo struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id"`
	SenderID  string `json:"sender_id"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// MonitoringStats agrège toutes les métriques pour le debug server
type MonitoringStats struct {
	// --- TRAFFIC METRICS ---
	InboundSpeed  float64 `json:"inbound_speed"`  // Mo/s (frames reçues)
	OutboundSpeed float64 `json:"outbound_speed"` // Mo/s (frames diffusées)
	MessagesIn    uint64  `json:"messages_in"`
	MessagesOut   uint64  `json:"messages_out"`
	DroppedSends  uint64  `json:"dropped_sends"`

	// --- GATEWAY METRICS ---
	LiveSessions      int    `json:"live_sessions"`
	LiveGroups        int    `json:"live_groups"`
	NotificationsSent uint64 `json:"notifications_sent"`
	StatusUpdates     uint64 `json:"status_updates"`

	// --- SYSTEM METRICS ---
	AllocMemMb uint64  `json:"alloc_mem_mb"`
	NumGC      uint32  `json:"num_gc"`
	RssBytes   uint64  `json:"rss_bytes"`
	CpuPercent float64 `json:"cpu_percent"`

	RecentMessages []RecentMessageInfo `json:"recent_messages"`
}

// MonitoringManager gère la télémétrie en temps réel
type MonitoringManager struct {
	log         *slog.Logger
	mu          sync.RWMutex
	latestStats MonitoringStats

	// Compteurs atomiques pour les débits (en bytes)
	InboundBytes  uint64
	OutboundBytes uint64
	MessagesIn    uint64
	MessagesOut   uint64
	DroppedSends  uint64
	Notifications uint64
	StatusUpdates uint64
	LastCheck     time.Time
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{
		log:       log,
		LastCheck: time.Now(),
		latestStats: MonitoringStats{
			RecentMessages: make([]RecentMessageInfo, 0),
		},
	}
}

func (mm *MonitoringManager) IncrMessagesIn() {
	atomic.AddUint64(&mm.MessagesIn, 1)
}

// IncrMessagesOut ajoute le nombre de sinks ayant reçu une diffusion
func (mm *MonitoringManager) IncrMessagesOut(delivered uint64) {
	atomic.AddUint64(&mm.MessagesOut, delivered)
}

func (mm *MonitoringManager) IncrDroppedSends() {
	atomic.AddUint64(&mm.DroppedSends, 1)
}

func (mm *MonitoringManager) IncrNotificationsSent() {
	atomic.AddUint64(&mm.Notifications, 1)
}

func (mm *MonitoringManager) IncrStatusUpdates() {
	atomic.AddUint64(&mm.StatusUpdates, 1)
}

// IncrInboundBytes ajoute des bytes reçus par la gateway
func (mm *MonitoringManager) IncrInboundBytes(n uint64) {
	atomic.AddUint64(&mm.InboundBytes, n)
}

// IncrOutboundBytes ajoute des bytes diffusés aux sessions
func (mm *MonitoringManager) IncrOutboundBytes(n uint64) {
	atomic.AddUint64(&mm.OutboundBytes, n)
}

// AddRecentMessage ajoute un message récent à la liste (thread-safe)
func (mm *MonitoringManager) AddRecentMessage(id, roomID, senderID, msgType string) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	recent := RecentMessageInfo{
		ID:        id,
		RoomID:    roomID,
		SenderID:  senderID,
		Type:      msgType,
		Timestamp: time.Now().Format("15:04:05"),
	}

	// Ajouter au début de la liste
	mm.latestStats.RecentMessages = append([]RecentMessageInfo{recent}, mm.latestStats.RecentMessages...)

	// Garder seulement les 20 derniers
	if len(mm.latestStats.RecentMessages) > 20 {
		mm.latestStats.RecentMessages = mm.latestStats.RecentMessages[:20]
	}
}

// Listen recalcule les métriques à intervalle fixe jusqu'à annulation du contexte
func (mm *MonitoringManager) Listen(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mm.log.Info("🛑 Monitoring manager arrêté")
			return

		case <-ticker.C:
			mm.updateStats()
		}
	}
}

func (mm *MonitoringManager) updateStats() {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	now := time.Now()
	duration := now.Sub(mm.LastCheck).Seconds()

	if duration > 0 {
		// Lire et réinitialiser les compteurs de bytes
		inBytes := atomic.SwapUint64(&mm.InboundBytes, 0)
		outBytes := atomic.SwapUint64(&mm.OutboundBytes, 0)

		// Calculer les vitesses en MB/s
		mm.latestStats.InboundSpeed = (float64(inBytes) / 1024 / 1024) / duration
		mm.latestStats.OutboundSpeed = (float64(outBytes) / 1024 / 1024) / duration
	}
	mm.LastCheck = now

	// Charger les compteurs cumulés
	mm.latestStats.MessagesIn = atomic.LoadUint64(&mm.MessagesIn)
	mm.latestStats.MessagesOut = atomic.LoadUint64(&mm.MessagesOut)
	mm.latestStats.DroppedSends = atomic.LoadUint64(&mm.DroppedSends)
	mm.latestStats.NotificationsSent = atomic.LoadUint64(&mm.Notifications)
	mm.latestStats.StatusUpdates = atomic.LoadUint64(&mm.StatusUpdates)

	// Métriques système Go
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	mm.latestStats.AllocMemMb = m.Alloc / 1024 / 1024
	mm.latestStats.NumGC = m.NumGC

	mm.log.Debug("📊 Stats mises à jour",
		"messages_in", mm.latestStats.MessagesIn,
		"messages_out", mm.latestStats.MessagesOut,
		"sessions", mm.latestStats.LiveSessions,
		"mem_mb", mm.latestStats.AllocMemMb,
	)
}

// UpdateGateway fixe les jauges fournies par le registre de sessions
func (mm *MonitoringManager) UpdateGateway(liveSessions, liveGroups int) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.latestStats.LiveSessions = liveSessions
	mm.latestStats.LiveGroups = liveGroups
}

// UpdateProcess fixe les métriques processus collectées par le heartbeat
func (mm *MonitoringManager) UpdateProcess(rss uint64, cpu float64) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.latestStats.RssBytes = rss
	mm.latestStats.CpuPercent = cpu
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latestStats
}
