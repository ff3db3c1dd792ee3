package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"correction_pricing/internal/storage"
	"correction_pricing/internal/tariffcache"
)

var (
	redisAddress  string
	redisPassword string
	redisDB       int
	channel       string
	reason        string
)

var invalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Tell every pricing instance to refetch the tariff catalog",
	Long: `Publish an invalidation event on the Redis channel the pricing service
listens on. Use it after editing the catalog outside the admin API.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := storage.DefaultRedisConfig()
		cfg.Address = redisAddress
		cfg.Password = redisPassword
		cfg.DB = redisDB

		client, err := storage.NewRedisClient(cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		origin := "tariffctl-" + uuid.NewString()[:8]
		broadcaster := tariffcache.NewRedisBroadcaster(client.Client(), channel, origin)
		if err := broadcaster.Publish(cmd.Context(), reason); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Published invalidation on %s: %s\n", channel, reason)
		return nil
	},
}

func init() {
	invalidateCmd.Flags().StringVar(&redisAddress, "redis", "localhost:6379", "Redis address")
	invalidateCmd.Flags().StringVar(&redisPassword, "redis-password", "", "Redis password")
	invalidateCmd.Flags().IntVar(&redisDB, "redis-db", 0, "Redis database")
	invalidateCmd.Flags().StringVar(&channel, "channel", tariffcache.DefaultChannel, "invalidation channel")
	invalidateCmd.Flags().StringVar(&reason, "reason", "manual invalidation", "reason recorded in the event")
}
