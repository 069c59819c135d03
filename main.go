package main

import (
	"context"

	"github.com/skyposts/skyposts/config"
	"github.com/skyposts/skyposts/routes"
	"github.com/skyposts/skyposts/storage"
	"github.com/skyposts/skyposts/store"
	"github.com/skyposts/skyposts/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	awsCfg, err := config.NewAWSConfig(context.Background(), cfg)
	if err != nil {
		utils.Sugar.Fatalf("load aws config: %v", err)
	}

	dynamo := store.NewDynamoClient(awsCfg, cfg.AWSEndpoint)
	s3Client := storage.NewS3Client(awsCfg, cfg.AWSEndpoint)

	r := routes.SetupRouter(routes.Deps{
		Config:   cfg,
		Users:    store.NewUsers(dynamo, cfg.UsersTable),
		Posts:    store.NewPosts(dynamo, cfg.PostsTable),
		Comments: store.NewComments(dynamo, cfg.CommentsTable),
		Objects:  storage.NewObjects(s3Client, cfg.PostImagesBucket),
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
